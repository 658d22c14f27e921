package aggregate

import "github.com/yairfalse/awslimits/pkg/sample"

// ELBUsage counts load balancers. ELB has no limit metrics.
func ELBUsage(loadBalancers []string) *sample.Set {
	return sample.NewSet(sample.Sample{Name: "elb.load_balancers", Value: int64(len(loadBalancers))})
}
