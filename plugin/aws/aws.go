// Package aws provides a destination that publishes notifications to SNS topics or SQS queues.
package aws

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	amazonsns "github.com/aws/aws-sdk-go-v2/service/sns"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/plugin"
	"github.com/drblury/notiflow/plugin/publish"
)

// Name is the name this destination registers under.
const Name = "aws"

// Modes select the AWS service a destination publishes to.
const (
	ModeSNS = "sns"
	ModeSQS = "sqs"
)

const (
	localstackAccountID = "000000000000"
	awsAccountIDLength  = 12
)

// DefaultConfigLoader allows overriding the AWS config loader for testing.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

// TopicResolverFactory allows overriding the topic resolver creation for testing.
var TopicResolverFactory = sns.NewGenerateArnTopicResolver

// SNSPublisherFactory allows overriding the SNS publisher creation for testing.
var SNSPublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return sns.NewPublisher(cfg, logger)
}

// SQSPublisherFactory allows overriding the SQS publisher creation for testing.
var SQSPublisherFactory = func(cfg sqs.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return sqs.NewPublisher(cfg, logger)
}

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), publish.Factory(Build))
}

// settings are the AWS specific destination parameters.
type settings struct {
	Mode            string
	Region          string
	AccountID       string
	Endpoint        *url.URL
	AccessKeyID     string
	SecretAccessKey string
}

func parseSettings(name string, params plugin.Params) (settings, error) {
	var s settings
	var err error
	if s.Mode, err = params.StringOr("mode", ModeSNS); err != nil {
		return s, err
	}
	s.Mode = strings.ToLower(s.Mode)
	if s.Mode != ModeSNS && s.Mode != ModeSQS {
		return s, errspkg.InvalidParamError{Component: name, Param: "mode", Reason: fmt.Sprintf("unsupported mode %q", s.Mode)}
	}
	if s.Region, err = params.StringOr("region", ""); err != nil {
		return s, err
	}
	accountID, err := params.StringOr("account_id", "")
	if err != nil {
		return s, err
	}
	s.AccountID = strings.Trim(accountID, "\"' ")
	if s.AccessKeyID, err = params.StringOr("access_key_id", ""); err != nil {
		return s, err
	}
	if s.SecretAccessKey, err = params.StringOr("secret_access_key", ""); err != nil {
		return s, err
	}
	endpoint, err := params.StringOr("endpoint", "")
	if err != nil {
		return s, err
	}
	if endpoint != "" {
		s.Endpoint, err = url.Parse(endpoint)
		if err != nil {
			return s, errspkg.InvalidParamError{Component: name, Param: "endpoint", Reason: err.Error()}
		}
	}
	return s, nil
}

// Build loads the AWS configuration and creates the SNS or SQS publisher selected by "mode".
func Build(ctx context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error) {
	s, err := parseSettings(name, params)
	if err != nil {
		return nil, err
	}

	awsCfg, err := createAWSConfig(ctx, s, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Created AWS config", watermill.LogFields{
		"destination":     name,
		"mode":            s.Mode,
		"region":          awsCfg.Region,
		"custom_endpoint": s.Endpoint != nil,
	})

	if s.Mode == ModeSQS {
		return createSQSPublisher(s, awsCfg, logger)
	}
	return createSNSPublisher(s, awsCfg, logger)
}

func createAWSConfig(ctx context.Context, s settings, logger watermill.LoggerAdapter) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.Region))
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		logger.Debug("Using static AWS credentials", nil)
		opts = append(opts, awsconfig.WithCredentialsProvider(staticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey)))
	}

	awsCfg, err := DefaultConfigLoader(ctx, opts...)
	if err != nil {
		logger.Error("Failed to load AWS default config", err, watermill.LogFields{"requested_region": s.Region})
		return aws.Config{}, err
	}

	// Ensure region is set even if the loader ignores options
	if s.Region != "" {
		awsCfg.Region = s.Region
	}
	return awsCfg, nil
}

func createSNSPublisher(s settings, awsCfg aws.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	accountID := resolveAccountID(s, logger)
	topicResolver, err := TopicResolverFactory(accountID, awsCfg.Region)
	if err != nil {
		logger.Error("Failed to create SNS topic resolver", err, watermill.LogFields{
			"accountID": accountID,
			"region":    awsCfg.Region,
		})
		return nil, err
	}

	cfg := sns.PublisherConfig{
		TopicResolver: topicResolver,
		AWSConfig:     awsCfg,
		Marshaler:     sns.DefaultMarshalerUnmarshaler{},
	}
	if s.Endpoint != nil {
		cfg.OptFns = []func(*amazonsns.Options){
			amazonsns.WithEndpointResolverV2(sns.OverrideEndpointResolver{
				Endpoint: smithyendpoints.Endpoint{URI: *s.Endpoint},
			}),
		}
	}
	return SNSPublisherFactory(cfg, logger)
}

func createSQSPublisher(s settings, awsCfg aws.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	cfg := sqs.PublisherConfig{
		AWSConfig: awsCfg,
		Marshaler: sqs.DefaultMarshalerUnmarshaler{},
	}
	if s.Endpoint != nil {
		cfg.OptFns = []func(*amazonsqs.Options){
			amazonsqs.WithEndpointResolverV2(sqs.OverrideEndpointResolver{
				Endpoint: smithyendpoints.Endpoint{URI: *s.Endpoint},
			}),
		}
	}
	return SQSPublisherFactory(cfg, logger)
}

// resolveAccountID falls back to the LocalStack account when a custom endpoint is set and the
// configured account id is empty or malformed.
func resolveAccountID(s settings, logger watermill.LoggerAdapter) string {
	if s.Endpoint == nil {
		return s.AccountID
	}
	if s.AccountID == "" {
		logger.Info("AWS account ID empty; using LocalStack default", watermill.LogFields{"accountID": localstackAccountID})
		return localstackAccountID
	}
	if len(s.AccountID) != awsAccountIDLength {
		logger.Info("Invalid AWS account ID; falling back to LocalStack default", watermill.LogFields{"accountID": s.AccountID})
		return localstackAccountID
	}
	return s.AccountID
}

func staticCredentialsProvider(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
		}, nil
	})
}
