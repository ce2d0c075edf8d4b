package herdcache

import (
	"context"
	"time"
)

// NoOp is a RemoteStore stub that is never available.
type NoOp struct{}

var _ RemoteStore = NoOp{}

// Get does not find anything.
func (NoOp) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards value.
func (NoOp) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

// Delete does nothing.
func (NoOp) Delete(_ context.Context, _ ...string) error {
	return nil
}

// Available is always false.
func (NoOp) Available(_ context.Context) bool {
	return false
}
