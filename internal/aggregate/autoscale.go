package aggregate

import "github.com/yairfalse/awslimits/pkg/sample"

// AccountLimits is the Auto Scaling account limits record.
type AccountLimits struct {
	MaxGroups               *int32
	MaxLaunchConfigurations *int32
}

// AutoscaleLimits reports the Auto Scaling group and launch configuration quotas.
func AutoscaleLimits(limits AccountLimits) (*sample.Set, error) {
	if limits.MaxGroups == nil {
		return nil, &ShapeError{Family: FamilyAutoscale, Field: "MaxNumberOfAutoScalingGroups"}
	}
	if limits.MaxLaunchConfigurations == nil {
		return nil, &ShapeError{Family: FamilyAutoscale, Field: "MaxNumberOfLaunchConfigurations"}
	}

	s := sample.NewSet()
	s.Add("autoscale.max_groups", int64(*limits.MaxGroups))
	s.Add("autoscale.max_launch_configurations", int64(*limits.MaxLaunchConfigurations))
	return s, nil
}

// AutoscaleUsage counts launch configurations and Auto Scaling groups.
func AutoscaleUsage(launchConfigs, groups []string) *sample.Set {
	s := sample.NewSet()
	s.Add("autoscale.launch_configurations", int64(len(launchConfigs)))
	s.Add("autoscale.groups", int64(len(groups)))
	return s
}
