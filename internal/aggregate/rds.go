package aggregate

import (
	"github.com/samber/lo"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// DBInstance is the part of an RDS instance description the collector needs.
type DBInstance struct {
	Identifier       string
	AllocatedStorage *int32 // GiB
	ReadReplicas     []string
}

// RDSUsage reports instance count, total allocated storage and the largest
// read-replica fan-out of any single instance.
func RDSUsage(instances []DBInstance) (*sample.Set, error) {
	for _, inst := range instances {
		if inst.AllocatedStorage == nil {
			return nil, shapeError(FamilyRDS, "AllocatedStorage", "not set on instance %q", inst.Identifier)
		}
	}

	totalStorage := lo.SumBy(instances, func(inst DBInstance) int64 {
		return int64(*inst.AllocatedStorage)
	})
	replicas := lo.Map(instances, func(inst DBInstance, _ int) int64 {
		return int64(len(inst.ReadReplicas))
	})

	s := sample.NewSet()
	s.Add("rds.instances", int64(len(instances)))
	s.Add("rds.total_storage", totalStorage)
	s.Add("rds.read_replicas_per_master", lo.Max(replicas))
	return s, nil
}
