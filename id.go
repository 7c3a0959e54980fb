package embercache

import (
	"time"

	"github.com/google/uuid"
)

// OperationID is a thin wrapper over github.com/google/uuid.UUID, kept
// decoupled from the external type the way the teacher's UUID wraps
// google/uuid, for tagging operations so overlapping inserts for the same
// key can be told apart in logs. The Store and Flusher do not mint or log
// one themselves.
type OperationID uuid.UUID

// NewOperationID returns a new randomly generated OperationID, retrying on
// error with a 1ms backoff up to 10 times before panicking (random UUID
// generation only fails if the OS entropy source is broken).
func NewOperationID() OperationID {
	var err error
	for i := 0; i < 10; i++ {
		var id uuid.UUID
		id, err = uuid.NewRandom()
		if err == nil {
			return OperationID(id)
		}
		time.Sleep(time.Millisecond)
	}
	panic(err)
}

// String returns the canonical string representation of the id.
func (id OperationID) String() string {
	return uuid.UUID(id).String()
}
