package testutil

import (
	"context"
	"sync"

	"github.com/c360/sensorstore/cache"
	"github.com/c360/sensorstore/errors"
)

// FailingStrategy is a cache.Strategy whose every operation fails, for
// verifying that callers degrade to the backing store instead of erroring.
type FailingStrategy struct {
	mu    sync.Mutex
	calls int
}

var _ cache.Strategy = (*FailingStrategy)(nil)

// Calls returns how often the strategy was consulted.
func (f *FailingStrategy) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FailingStrategy) fail(op string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.WrapCaching(errors.ErrCacheUnavailable, "failing", op, "reach cache")
}

// Get implements cache.Strategy
func (f *FailingStrategy) Get(context.Context, string) (string, bool, error) {
	return "", false, f.fail("Get")
}

// Set implements cache.Strategy
func (f *FailingStrategy) Set(context.Context, string, string) error {
	return f.fail("Set")
}

// SetWithExpiry implements cache.Strategy
func (f *FailingStrategy) SetWithExpiry(context.Context, string, string, int, bool) error {
	return f.fail("SetWithExpiry")
}

// Remove implements cache.Strategy
func (f *FailingStrategy) Remove(context.Context, string) error {
	return f.fail("Remove")
}
