// Package emitter forwards queued items to monitoring backends.
package emitter

import (
	"context"
	"errors"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// Emitter outputs queued items to a backend.
type Emitter interface {
	// Emit sends one item to the backend.
	Emit(ctx context.Context, item sample.Item) error

	// Close flushes and cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to all emitters, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, item sample.Item) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all emitters and joins their errors.
func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped emitters.
func (m *MultiEmitter) Len() int {
	return len(m.emitters)
}
