// Package aws fetches usage and limit records from AWS for the collector.
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/yairfalse/awslimits/internal/aggregate"
	"github.com/yairfalse/awslimits/pkg/sample"
)

// ErrNoLimits is returned when limits are requested for a family without any.
var ErrNoLimits = errors.New("family has no limit metrics")

// Plugin implements plugin.Source for one AWS region.
type Plugin struct {
	region string

	// AWS clients (interfaces for testability)
	ec2Client      EC2API
	asgClient      AutoScalingAPI
	elbClient      ELBAPI
	rdsClient      RDSAPI
	dynamodbClient DynamoDBAPI
}

// Config holds AWS plugin configuration.
// Static keys are optional; without them the default credential chain is used.
type Config struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
}

// New creates a new AWS plugin.
func New(ctx context.Context, cfg Config) (*Plugin, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Plugin{
		region:         cfg.Region,
		ec2Client:      ec2.NewFromConfig(awsCfg),
		asgClient:      autoscaling.NewFromConfig(awsCfg),
		elbClient:      elasticloadbalancingv2.NewFromConfig(awsCfg),
		rdsClient:      rds.NewFromConfig(awsCfg),
		dynamodbClient: dynamodb.NewFromConfig(awsCfg),
	}, nil
}

func loadOptions(cfg Config) []func(*config.LoadOptions) error {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return opts
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "aws"
}

// Region returns the region this plugin queries.
func (p *Plugin) Region() string {
	return p.region
}

type usageFetcher func(context.Context) (*sample.Set, error)

type limitFetcher func(context.Context) (*sample.Set, []error, error)

func (p *Plugin) usageFetchers() map[aggregate.Family]usageFetcher {
	return map[aggregate.Family]usageFetcher{
		aggregate.FamilyAutoscale: p.fetchAutoscaleUsage,
		aggregate.FamilyDynamoDB:  p.fetchDynamoDBUsage,
		aggregate.FamilyEC2:       p.fetchEC2Usage,
		aggregate.FamilyELB:       p.fetchELBUsage,
		aggregate.FamilyRDS:       p.fetchRDSUsage,
	}
}

func (p *Plugin) limitFetchers() map[aggregate.Family]limitFetcher {
	return map[aggregate.Family]limitFetcher{
		aggregate.FamilyAutoscale: p.fetchAutoscaleLimits,
		aggregate.FamilyEC2:       p.fetchEC2Limits,
	}
}

// Usage fetches and aggregates the usage records of family f.
func (p *Plugin) Usage(ctx context.Context, f aggregate.Family) (*sample.Set, error) {
	fetch, ok := p.usageFetchers()[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", aggregate.ErrUnknownFamily, f)
	}
	return fetch(ctx)
}

// Limits fetches and aggregates the account limits of family f.
func (p *Plugin) Limits(ctx context.Context, f aggregate.Family) (*sample.Set, []error, error) {
	fetch, ok := p.limitFetchers()[f]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", f, ErrNoLimits)
	}
	return fetch(ctx)
}
