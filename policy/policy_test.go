package policy

import (
	"testing"

	"github.com/sharedcode/embercache/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatedTicketAdmitsThenFilters(t *testing.T) {
	p := NewRatedTicket[string](10)
	m := &metrics.Atomic{}

	assert.True(t, p.Judge("a", 10, m))
	p.OnInsert("a", 10, m, true)
	assert.False(t, p.Judge("a", 10, m))
}

func TestRatedTicketOnDropDoesNotDebit(t *testing.T) {
	p := NewRatedTicket[string](10)
	m := &metrics.Atomic{}
	p.OnDrop("a", 10, m, false)
	assert.True(t, p.Judge("a", 10, m))
}

func TestExistReflectsCatalogMembership(t *testing.T) {
	p := NewExist[string]()
	live := map[string]bool{"present": true}
	p.Init(func(k string) bool { return live[k] })

	m := &metrics.Atomic{}
	assert.True(t, p.Judge("present", 1, m))
	assert.False(t, p.Judge("absent", 1, m))
}

func TestExistInitIsWriteOnce(t *testing.T) {
	p := NewExist[string]()
	p.Init(func(k string) bool { return true })
	p.Init(func(k string) bool { return false })

	m := &metrics.Atomic{}
	assert.True(t, p.Judge("x", 1, m))
}

type stubPolicy struct {
	verdict      bool
	insertCalls  int
	dropCalls    int
	lastVerdicts []bool
}

func (s *stubPolicy) Judge(key string, weight int, m metrics.Metrics) bool { return s.verdict }
func (s *stubPolicy) OnInsert(key string, weight int, m metrics.Metrics, verdict bool) {
	s.insertCalls++
	s.lastVerdicts = append(s.lastVerdicts, verdict)
}
func (s *stubPolicy) OnDrop(key string, weight int, m metrics.Metrics, verdict bool) {
	s.dropCalls++
	s.lastVerdicts = append(s.lastVerdicts, verdict)
}

func TestJudgeAllAggregatesWithAND(t *testing.T) {
	p1 := &stubPolicy{verdict: true}
	p2 := &stubPolicy{verdict: false}
	m := &metrics.Atomic{}

	aggregate, verdicts := JudgeAll[string]([]Judge[string]{p1, p2}, "k", 1, m)
	assert.False(t, aggregate)
	assert.Equal(t, []bool{true, false}, verdicts)
}

func TestNotifyAllUsesPerPolicyVerdictNotAggregate(t *testing.T) {
	p1 := &stubPolicy{verdict: true}
	p2 := &stubPolicy{verdict: false}
	m := &metrics.Atomic{}

	aggregate, verdicts := JudgeAll[string]([]Judge[string]{p1, p2}, "k", 1, m)
	require.False(t, aggregate)

	NotifyAll[string]([]Judge[string]{p1, p2}, "k", 1, m, verdicts, false)
	assert.Equal(t, 1, p1.dropCalls)
	assert.Equal(t, 1, p2.dropCalls)
	assert.Equal(t, 0, p1.insertCalls)
	assert.Equal(t, []bool{true}, p1.lastVerdicts)
	assert.Equal(t, []bool{false}, p2.lastVerdicts)
}
