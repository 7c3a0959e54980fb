// Package retry wraps github.com/sethvargo/go-retry with the engine's
// retryability rules, generalizing the teacher repository's sop.Retry /
// sop.ShouldRetry helpers (root package of github.com/sharedcode/sop) from a
// B-tree-store-wide retry helper into one scoped to this engine's Device I/O.
package retry

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Device runs task with Fibonacci backoff starting at base, retrying up to
// maxRetries times after the first attempt, and only on errors ShouldRetry
// accepts. Mirrors the teacher's
// Retry(ctx, task, gaveUpTask) shape, minus the gaveUpTask hook (the caller
// already gets the final error back).
func Device(ctx context.Context, base time.Duration, maxRetries uint64, task func(ctx context.Context) error) error {
	b := goretry.NewFibonacci(base)
	b = goretry.WithMaxRetries(maxRetries, b)
	return goretry.Do(ctx, b, func(ctx context.Context) error {
		err := task(ctx)
		if err == nil {
			return nil
		}
		if !ShouldRetry(err) {
			return err
		}
		return goretry.RetryableError(err)
	})
}

// ShouldRetry reports whether err looks transient. Permanent OS conditions
// (missing file, permission, read-only/full filesystem, bad argument) are
// rejected so a failing Device doesn't retry in a tight, pointless loop.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) || errors.Is(err, os.ErrExist) {
		return false
	}
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.EINVAL),
		errors.Is(err, syscall.ENAMETOOLONG):
		return false
	}
	return true
}

// PollConstant retries task at a fixed interval until it returns a nil
// error, ctx is done, or stop fires. If stop has already fired, task is not
// run at all.
func PollConstant(ctx context.Context, interval time.Duration, stop <-chan struct{}, task func() bool) bool {
	select {
	case <-stop:
		return false
	default:
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var found bool
	errNotYet := errors.New("retry: condition not yet satisfied")
	b := goretry.NewConstant(interval)
	_ = goretry.Do(ctx, b, func(ctx context.Context) error {
		if task() {
			found = true
			return nil
		}
		return goretry.RetryableError(errNotYet)
	})
	return found
}
