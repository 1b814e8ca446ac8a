// Package mainconfig builds the shared AWS SDK configuration for the API
// binary. A non-empty endpoint override points every AWS-backed store
// (DynamoDB, SQS, S3) at the same local emulator.
package mainconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	appconfig "github.com/glowdesk/glowdesk-api/internal/config"
)

// LoadAWSConfig resolves region, credentials, and the optional local
// endpoint from application config. Static credentials apply only when both
// halves are set; otherwise the SDK's default chain runs.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("mainconfig: failed to load AWS config: %w", err)
	}

	if cfg.AWSEndpointOverride != "" {
		awsCfg.EndpointResolverWithOptions = localResolver(cfg.AWSEndpointOverride, cfg.AWSRegion)
	}
	return awsCfg, nil
}

// localResolver routes the services this API uses to one emulator endpoint
// and lets everything else fall through to the SDK defaults.
func localResolver(endpoint, region string) aws.EndpointResolverWithOptionsFunc {
	local := map[string]bool{
		dynamodb.ServiceID: true,
		sqs.ServiceID:      true,
		s3.ServiceID:       true,
	}
	return func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
		if !local[service] {
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}
		return aws.Endpoint{
			URL:           endpoint,
			PartitionID:   "aws",
			SigningRegion: region,
		}, nil
	}
}
