// Package plugin defines the fetch contract used by the collector.
package plugin

import (
	"context"

	"github.com/yairfalse/awslimits/internal/aggregate"
	"github.com/yairfalse/awslimits/pkg/sample"
)

// Source fetches raw records for one resource family and aggregates them.
// Implementations must not retain state between calls.
type Source interface {
	// Name returns the source identifier (e.g., "aws").
	Name() string

	// Usage returns the current usage samples for family f.
	Usage(ctx context.Context, f aggregate.Family) (*sample.Set, error)

	// Limits returns the account limit samples for family f. Warnings are
	// non-fatal problems whose metric was omitted.
	Limits(ctx context.Context, f aggregate.Family) (s *sample.Set, warnings []error, err error)
}
