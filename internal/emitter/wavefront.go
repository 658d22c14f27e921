package emitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/wavefronthq/wavefront-sdk-go/senders"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// MetricClient is the part of the Wavefront sender the emitter uses.
type MetricClient interface {
	SendMetric(name string, value float64, ts int64, source string, tags map[string]string) error
	Flush() error
	Close()
}

// WavefrontEmitter sends items to a Wavefront proxy or direct-ingestion endpoint.
type WavefrontEmitter struct {
	client MetricClient
}

// NewWavefrontEmitter connects to the Wavefront endpoint at address.
func NewWavefrontEmitter(address string, options ...senders.Option) (*WavefrontEmitter, error) {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	client, err := senders.NewSender(address, options...)
	if err != nil {
		return nil, fmt.Errorf("create wavefront sender: %w", err)
	}
	return NewWavefrontEmitterWithClient(client), nil
}

// NewWavefrontEmitterWithClient wraps an existing client.
func NewWavefrontEmitterWithClient(client MetricClient) *WavefrontEmitter {
	return &WavefrontEmitter{client: client}
}

// Emit sends one point named after the item key, sourced from its host and
// timestamped with its collection clock. Text items are sent as 1 with the
// string in a value tag.
func (e *WavefrontEmitter) Emit(_ context.Context, item sample.Item) error {
	value := float64(item.Value)
	tags := map[string]string{"kind": string(item.Kind)}
	if item.Text != "" {
		value = 1
		tags["value"] = item.Text
	}

	if err := e.client.SendMetric(item.Key, value, item.Clock.Unix(), item.Host, tags); err != nil {
		return fmt.Errorf("send metric %s: %w", item.Key, err)
	}
	return nil
}

// Close flushes buffered points and closes the sender.
func (e *WavefrontEmitter) Close() error {
	defer e.client.Close()
	if err := e.client.Flush(); err != nil {
		return fmt.Errorf("flush wavefront sender: %w", err)
	}
	return nil
}
