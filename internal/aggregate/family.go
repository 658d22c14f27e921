// Package aggregate turns already-fetched AWS records into usage and limit samples.
//
// Every function here is pure: no network access, no logging, no hidden state.
// Fetching lives in internal/plugin/aws, emission in internal/queue.
package aggregate

import (
	"errors"
	"fmt"
	"strings"
)

// Family is one AWS service category tracked by the collector.
type Family string

const (
	FamilyAutoscale Family = "autoscale"
	FamilyDynamoDB  Family = "dynamodb"
	FamilyEC2       Family = "ec2"
	FamilyELB       Family = "elb"
	FamilyRDS       Family = "rds"
)

// ErrUnknownFamily is returned for names outside the Family enumeration.
var ErrUnknownFamily = errors.New("unknown resource family")

var families = []Family{
	FamilyAutoscale,
	FamilyDynamoDB,
	FamilyEC2,
	FamilyELB,
	FamilyRDS,
}

// Families returns every family in default collection order.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// LimitFamilies returns the families that expose account limits.
func LimitFamilies() []Family {
	return []Family{FamilyAutoscale, FamilyEC2}
}

// HasLimits reports whether limits can be collected for f.
func (f Family) HasLimits() bool {
	return f == FamilyAutoscale || f == FamilyEC2
}

func (f Family) String() string {
	return string(f)
}

// ParseFamily resolves a configured family name.
func ParseFamily(name string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range families {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, name)
}
