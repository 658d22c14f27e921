package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_OrderedByName(t *testing.T) {
	s := NewSet(
		Sample{Name: "rds.total_storage", Value: 100},
		Sample{Name: "ec2.elastic_ips", Value: 2},
		Sample{Name: "autoscale.groups", Value: 3},
	)

	samples := s.Samples()
	require.Len(t, samples, 3)
	assert.Equal(t, "autoscale.groups", samples[0].Name)
	assert.Equal(t, "ec2.elastic_ips", samples[1].Name)
	assert.Equal(t, "rds.total_storage", samples[2].Name)
}

func TestSet_LastWriteWins(t *testing.T) {
	s := NewSet()
	s.Add("elb.load_balancers", 1)
	s.Add("elb.load_balancers", 4)

	assert.Equal(t, 1, s.Len())
	v, ok := s.Value("elb.load_balancers")
	require.True(t, ok)
	assert.Equal(t, int64(4), v)
}

func TestSet_Merge(t *testing.T) {
	a := NewSet(Sample{Name: "ec2.elastic_ips", Value: 1}, Sample{Name: "elb.load_balancers", Value: 2})
	b := NewSet(Sample{Name: "elb.load_balancers", Value: 7}, Sample{Name: "rds.instances", Value: 3})

	a.Merge(b)

	assert.Equal(t, map[string]int64{
		"ec2.elastic_ips":    1,
		"elb.load_balancers": 7,
		"rds.instances":      3,
	}, a.Map())
}

func TestSet_MergeNil(t *testing.T) {
	a := NewSet(Sample{Name: "rds.instances", Value: 1})
	a.Merge(nil)
	assert.Equal(t, 1, a.Len())
}

func TestSet_TextSamples(t *testing.T) {
	s := NewSet()
	s.AddText("ec2.supported_platforms", "VPC")
	s.Add("ec2.max_elastic_ips", 5)

	smp, ok := s.Get("ec2.supported_platforms")
	require.True(t, ok)
	assert.True(t, smp.IsText())
	assert.Equal(t, "VPC", smp.Text)

	// Map only carries numeric values
	assert.Equal(t, map[string]int64{"ec2.max_elastic_ips": 5}, s.Map())
	assert.True(t, s.Has("ec2.supported_platforms"))
}

func TestSet_NilLen(t *testing.T) {
	var s *Set
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Samples())
}

func TestKind_Prefix(t *testing.T) {
	assert.Equal(t, "aws_service.using_resource.", KindUsage.Prefix())
	assert.Equal(t, "aws_service.limit.", KindLimit.Prefix())
}

func TestNewItem(t *testing.T) {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	item := NewItem(KindLimit, Sample{Name: "autoscale.max_groups", Value: 200}, "collector-1", clock)

	assert.Equal(t, "aws_service.limit.autoscale.max_groups", item.Key)
	assert.Equal(t, KindLimit, item.Kind)
	assert.Equal(t, int64(200), item.Value)
	assert.Equal(t, "collector-1", item.Host)
	assert.Equal(t, clock, item.Clock)
	assert.Empty(t, item.Text)
}
