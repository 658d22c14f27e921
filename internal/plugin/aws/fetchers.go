package aws

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/yairfalse/awslimits/internal/aggregate"
	"github.com/yairfalse/awslimits/pkg/sample"
)

// ec2LimitAttributes are requested in a single DescribeAccountAttributes call.
var ec2LimitAttributes = []ec2types.AccountAttributeName{
	aggregate.AttrMaxInstances,
	ec2types.AccountAttributeNameSupportedPlatforms,
	aggregate.AttrMaxElasticIPs,
	aggregate.AttrVPCMaxElasticIPs,
}

// fetchAutoscaleLimits reads the Auto Scaling account limits.
func (p *Plugin) fetchAutoscaleLimits(ctx context.Context) (*sample.Set, []error, error) {
	output, err := p.asgClient.DescribeAccountLimits(ctx, &autoscaling.DescribeAccountLimitsInput{})
	if err != nil {
		return nil, nil, fmt.Errorf("describe account limits: %w", err)
	}

	s, err := aggregate.AutoscaleLimits(aggregate.AccountLimits{
		MaxGroups:               output.MaxNumberOfAutoScalingGroups,
		MaxLaunchConfigurations: output.MaxNumberOfLaunchConfigurations,
	})
	return s, nil, err
}

// fetchAutoscaleUsage counts launch configurations and Auto Scaling groups.
func (p *Plugin) fetchAutoscaleUsage(ctx context.Context) (*sample.Set, error) {
	var launchConfigs []string
	var nextToken *string

	for {
		output, err := p.asgClient.DescribeLaunchConfigurations(ctx, &autoscaling.DescribeLaunchConfigurationsInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe launch configurations: %w", err)
		}

		for _, lc := range output.LaunchConfigurations {
			launchConfigs = append(launchConfigs, aws.ToString(lc.LaunchConfigurationName))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	var groups []string
	nextToken = nil

	for {
		output, err := p.asgClient.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe auto scaling groups: %w", err)
		}

		for _, asg := range output.AutoScalingGroups {
			groups = append(groups, aws.ToString(asg.AutoScalingGroupName))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return aggregate.AutoscaleUsage(launchConfigs, groups), nil
}

// fetchEC2Limits reads the instance and Elastic IP quotas from the account attributes.
func (p *Plugin) fetchEC2Limits(ctx context.Context) (*sample.Set, []error, error) {
	output, err := p.ec2Client.DescribeAccountAttributes(ctx, &ec2.DescribeAccountAttributesInput{
		AttributeNames: ec2LimitAttributes,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("describe account attributes: %w", err)
	}

	attrs := make([]aggregate.AccountAttribute, 0, len(output.AccountAttributes))
	for _, attr := range output.AccountAttributes {
		attrs = append(attrs, convertAccountAttribute(attr))
	}

	return aggregate.EC2Limits(attrs)
}

func convertAccountAttribute(attr ec2types.AccountAttribute) aggregate.AccountAttribute {
	values := make([]string, 0, len(attr.AttributeValues))
	for _, v := range attr.AttributeValues {
		values = append(values, aws.ToString(v.AttributeValue))
	}
	return aggregate.AccountAttribute{
		Name:   aws.ToString(attr.AttributeName),
		Values: values,
	}
}

// fetchEC2Usage counts Elastic IPs and running instances.
func (p *Plugin) fetchEC2Usage(ctx context.Context) (*sample.Set, error) {
	addrOutput, err := p.ec2Client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe addresses: %w", err)
	}

	addresses := make([]string, 0, len(addrOutput.Addresses))
	for _, addr := range addrOutput.Addresses {
		addresses = append(addresses, aws.ToString(addr.PublicIp))
	}

	runningFilter := ec2types.Filter{
		Name:   aws.String("instance-state-code"),
		Values: []string{strconv.Itoa(int(aggregate.StateCodeRunning))},
	}

	var instances []aggregate.Instance
	var nextToken *string

	for {
		output, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters:   []ec2types.Filter{runningFilter},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				instances = append(instances, convertEC2Instance(instance))
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return aggregate.EC2Usage(addresses, instances), nil
}

func convertEC2Instance(instance ec2types.Instance) aggregate.Instance {
	inst := aggregate.Instance{ID: aws.ToString(instance.InstanceId)}
	if instance.State != nil {
		inst.StateCode = aws.ToInt32(instance.State.Code)
	}
	return inst
}

// fetchELBUsage counts Elastic Load Balancers.
func (p *Plugin) fetchELBUsage(ctx context.Context) (*sample.Set, error) {
	var names []string
	var marker *string

	for {
		output, err := p.elbClient.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe load balancers: %w", err)
		}

		for _, lb := range output.LoadBalancers {
			names = append(names, aws.ToString(lb.LoadBalancerName))
		}

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	return aggregate.ELBUsage(names), nil
}

// fetchRDSUsage reads every DB instance of the region.
func (p *Plugin) fetchRDSUsage(ctx context.Context) (*sample.Set, error) {
	var instances []aggregate.DBInstance
	var marker *string

	for {
		output, err := p.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe db instances: %w", err)
		}

		for _, instance := range output.DBInstances {
			instances = append(instances, convertRDSInstance(instance))
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return aggregate.RDSUsage(instances)
}

func convertRDSInstance(instance rdstypes.DBInstance) aggregate.DBInstance {
	return aggregate.DBInstance{
		Identifier:       aws.ToString(instance.DBInstanceIdentifier),
		AllocatedStorage: instance.AllocatedStorage,
		ReadReplicas:     instance.ReadReplicaDBInstanceIdentifiers,
	}
}

// fetchDynamoDBUsage lists every table and reads its provisioned throughput.
func (p *Plugin) fetchDynamoDBUsage(ctx context.Context) (*sample.Set, error) {
	names := []string{}
	var tables []aggregate.Table
	var lastKey *string

	for {
		output, err := p.dynamodbClient.ListTables(ctx, &dynamodb.ListTablesInput{ExclusiveStartTableName: lastKey})
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		if output.TableNames == nil {
			return aggregate.DynamoDBUsage(nil, nil)
		}

		for _, tableName := range output.TableNames {
			desc, err := p.dynamodbClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
			if err != nil {
				return nil, fmt.Errorf("describe table %s: %w", tableName, err)
			}
			tables = append(tables, convertDynamoDBTable(tableName, desc.Table))
		}
		names = append(names, output.TableNames...)

		if output.LastEvaluatedTableName == nil {
			break
		}
		lastKey = output.LastEvaluatedTableName
	}

	return aggregate.DynamoDBUsage(names, tables)
}

func convertDynamoDBTable(name string, table *ddbtypes.TableDescription) aggregate.Table {
	t := aggregate.Table{Name: name}
	if table == nil || table.ProvisionedThroughput == nil {
		return t
	}
	t.ReadCapacity = table.ProvisionedThroughput.ReadCapacityUnits
	t.WriteCapacity = table.ProvisionedThroughput.WriteCapacityUnits
	return t
}
