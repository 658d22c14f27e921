package aggregate

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// EC2 account attribute names.
const (
	AttrMaxInstances       = "max-instances"
	AttrSupportedPlatforms = "supported-platforms"
	AttrMaxElasticIPs      = "max-elastic-ips"
	AttrVPCMaxElasticIPs   = "vpc-max-elastic-ips"
)

// PlatformVPC is the supported-platforms value of VPC-only accounts.
const PlatformVPC = "VPC"

// StateCodeRunning is the EC2 instance state code for "running".
const StateCodeRunning int32 = 16

// AccountAttribute is one EC2 account attribute and its values.
type AccountAttribute struct {
	Name   string
	Values []string
}

// Instance is the part of an EC2 instance the collector needs.
type Instance struct {
	ID        string
	StateCode int32
}

// Running reports whether the instance is in the running state. Only the low
// byte of the code is meaningful; the high byte is for internal AWS use.
func (i Instance) Running() bool {
	return i.StateCode&0xff == StateCodeRunning
}

// EC2Limits reports the instance and Elastic IP quotas.
//
// The Elastic IP quota attribute depends on the account platform: VPC accounts
// read vpc-max-elastic-ips, classic accounts max-elastic-ips. Warnings hold
// non-fatal problems whose metric was omitted.
func EC2Limits(attrs []AccountAttribute) (s *sample.Set, warnings []error, err error) {
	byName := lo.KeyBy(attrs, func(a AccountAttribute) string { return a.Name })
	s = sample.NewSet()

	maxInstances, ok := byName[AttrMaxInstances]
	switch {
	case !ok || len(maxInstances.Values) == 0:
		return nil, nil, &ShapeError{Family: FamilyEC2, Field: AttrMaxInstances}
	case len(maxInstances.Values) > 1:
		warnings = append(warnings, &AmbiguousAttributeError{Attribute: AttrMaxInstances, Count: len(maxInstances.Values)})
	default:
		v, err := parseAttrValue(AttrMaxInstances, maxInstances.Values[0])
		if err != nil {
			return nil, nil, err
		}
		s.Add("ec2.max_instances", v)
	}

	platform, ok := byName[AttrSupportedPlatforms]
	if !ok || len(platform.Values) == 0 {
		return nil, nil, &ShapeError{Family: FamilyEC2, Field: AttrSupportedPlatforms}
	}
	if strings.TrimSpace(platform.Values[0]) == "" {
		return nil, nil, shapeError(FamilyEC2, AttrSupportedPlatforms, "empty platform value")
	}
	s.AddText("ec2.supported_platforms", platform.Values[0])

	eipAttr := ElasticIPAttribute(platform.Values[0])
	eip, ok := byName[eipAttr]
	if !ok || len(eip.Values) == 0 {
		return nil, nil, &ShapeError{Family: FamilyEC2, Field: eipAttr}
	}
	maxEIPs, err := parseAttrValue(eipAttr, eip.Values[0])
	if err != nil {
		return nil, nil, err
	}
	s.Add("ec2.max_elastic_ips", maxEIPs)

	return s, warnings, nil
}

// ElasticIPAttribute returns the quota attribute that applies to platform.
func ElasticIPAttribute(platform string) string {
	if platform == PlatformVPC {
		return AttrVPCMaxElasticIPs
	}
	return AttrMaxElasticIPs
}

// EC2Usage counts allocated Elastic IPs and running instances.
func EC2Usage(addresses []string, instances []Instance) *sample.Set {
	s := sample.NewSet()
	s.Add("ec2.elastic_ips", int64(len(addresses)))
	s.Add("ec2.running_instances", int64(lo.CountBy(instances, Instance.Running)))
	return s
}

func parseAttrValue(attr, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, shapeError(FamilyEC2, attr, "value %q is not a non-negative integer", raw)
	}
	return v, nil
}
