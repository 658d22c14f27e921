package emitter

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// ItemSource is the receive side of the emission queue.
type ItemSource interface {
	Items() <-chan sample.Item
}

// Forwarder drains the queue into an emitter.
type Forwarder struct {
	source  ItemSource
	emitter Emitter

	sent   atomic.Int64
	failed atomic.Int64
}

// NewForwarder creates a forwarder from source to emitter.
func NewForwarder(source ItemSource, emitter Emitter) *Forwarder {
	return &Forwarder{source: source, emitter: emitter}
}

// Run forwards items until ctx is done or the queue is closed. Items still
// buffered at shutdown are forwarded before Run returns.
func (f *Forwarder) Run(ctx context.Context) error {
	items := f.source.Items()
	for {
		select {
		case <-ctx.Done():
			f.drain(context.WithoutCancel(ctx), items)
			return nil
		case item, ok := <-items:
			if !ok {
				return nil
			}
			f.forward(ctx, item)
		}
	}
}

func (f *Forwarder) drain(ctx context.Context, items <-chan sample.Item) {
	drained := 0
	for {
		select {
		case item, ok := <-items:
			if !ok {
				log.Debug().Int("items", drained).Msg("queue drained")
				return
			}
			f.forward(ctx, item)
			drained++
		default:
			log.Debug().Int("items", drained).Msg("queue drained")
			return
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, item sample.Item) {
	if err := f.emitter.Emit(ctx, item); err != nil {
		f.failed.Add(1)
		log.Warn().Err(err).Str("key", item.Key).Msg("emit failed")
		return
	}
	f.sent.Add(1)
}

// Sent returns the number of items emitted successfully.
func (f *Forwarder) Sent() int64 {
	return f.sent.Load()
}

// Failed returns the number of items the emitter rejected.
func (f *Forwarder) Failed() int64 {
	return f.failed.Load()
}
