package awsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/config"
	"github.com/kidoz/patch-compliance-check/internal/telemetry"
)

// loadTimeout bounds credential and region resolution (IMDS, SSO, profiles).
const loadTimeout = 30 * time.Second

// NewAWSConfig resolves region and credentials shared by every service client.
// Requests go through an OTel-instrumented HTTP client.
func NewAWSConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithHTTPClient(telemetry.HTTPClient(time.Duration(cfg.AWS.Timeout) * time.Second)),
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AWS.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
	}

	log.Debug("Resolved AWS config",
		zap.String("region", awsCfg.Region),
		zap.String("profile", cfg.AWS.Profile),
		zap.String("endpoint", cfg.AWS.Endpoint),
	)
	return awsCfg, nil
}

// ProvideAWSConfig is the fx constructor for aws.Config.
func ProvideAWSConfig(cfg *config.Config, log *zap.Logger) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	return NewAWSConfig(ctx, cfg, log)
}

// ProvideSSMClient creates the Systems Manager client.
func ProvideSSMClient(awsCfg aws.Config) *ssm.Client {
	return ssm.NewFromConfig(awsCfg)
}

// ProvideConfigServiceClient creates the Config (compliance) client.
func ProvideConfigServiceClient(awsCfg aws.Config) *configservice.Client {
	return configservice.NewFromConfig(awsCfg)
}

// ProvideEC2Client creates the EC2 client.
func ProvideEC2Client(awsCfg aws.Config) *ec2.Client {
	return ec2.NewFromConfig(awsCfg)
}

// ProvideSTSClient creates the STS client.
func ProvideSTSClient(awsCfg aws.Config) *sts.Client {
	return sts.NewFromConfig(awsCfg)
}
