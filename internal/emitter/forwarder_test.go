package emitter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/awslimits/internal/queue"
)

func TestForwarder_ForwardsUntilClosed(t *testing.T) {
	q := queue.New(8)
	sink := &mockEmitter{}
	f := NewForwarder(q, sink)

	require.NoError(t, q.Put(usageItem("ec2.elastic_ips", 1)))
	require.NoError(t, q.Put(usageItem("ec2.running_instances", 2)))
	q.Close()

	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, int64(2), f.Sent())
	require.Len(t, sink.items, 2)
	assert.Equal(t, "aws_service.using_resource.ec2.elastic_ips", sink.items[0].Key)
}

func TestForwarder_DrainsOnShutdown(t *testing.T) {
	q := queue.New(8)
	sink := &mockEmitter{}
	f := NewForwarder(q, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, q.Put(usageItem("rds.instances", 1)))
	require.NoError(t, q.Put(usageItem("rds.total_storage", 50)))
	require.NoError(t, q.Put(limitItem("ec2.max_instances", 20)))

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop")
	}
	assert.Equal(t, int64(3), f.Sent())
	assert.Zero(t, q.Len())
}

func TestForwarder_CountsFailures(t *testing.T) {
	q := queue.New(4)
	sink := &mockEmitter{emitErr: errors.New("backend down")}
	f := NewForwarder(q, sink)

	require.NoError(t, q.Put(usageItem("elb.load_balancers", 1)))
	q.Close()

	require.NoError(t, f.Run(context.Background()))
	assert.Zero(t, f.Sent())
	assert.Equal(t, int64(1), f.Failed())
}
