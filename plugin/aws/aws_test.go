package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/plugin"
)

type mockPublisher struct{}

func (mockPublisher) Publish(string, ...*message.Message) error { return nil }
func (mockPublisher) Close() error                              { return nil }

func stubAWS(t *testing.T) {
	t.Helper()
	originalConfigLoader := DefaultConfigLoader
	originalTopicResolver := TopicResolverFactory
	originalSNS := SNSPublisherFactory
	originalSQS := SQSPublisherFactory
	t.Cleanup(func() {
		DefaultConfigLoader = originalConfigLoader
		TopicResolverFactory = originalTopicResolver
		SNSPublisherFactory = originalSNS
		SQSPublisherFactory = originalSQS
	})

	DefaultConfigLoader = func(ctx context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "eu-central-1"}, nil
	}
	TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
		return &sns.GenerateArnTopicResolver{}, nil
	}
	SNSPublisherFactory = func(sns.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
		return nil, errors.New("sns publisher not stubbed")
	}
	SQSPublisherFactory = func(sqs.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
		return nil, errors.New("sqs publisher not stubbed")
	}
}

func TestRegistered(t *testing.T) {
	assert.True(t, plugin.DefaultRegistry.Has(plugin.CapabilityDestination, Name))
}

func TestBuildSNS(t *testing.T) {
	stubAWS(t)

	var gotAccount, gotRegion string
	TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
		gotAccount, gotRegion = accountID, region
		return &sns.GenerateArnTopicResolver{}, nil
	}
	var got sns.PublisherConfig
	SNSPublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		got = cfg
		return mockPublisher{}, nil
	}

	pub, err := Build(context.Background(), "alerts", plugin.Params{
		"region":     "us-west-2",
		"account_id": "'123456789012'",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, mockPublisher{}, pub)
	assert.Equal(t, "123456789012", gotAccount)
	assert.Equal(t, "us-west-2", gotRegion)
	assert.Equal(t, "us-west-2", got.AWSConfig.Region)
	assert.Empty(t, got.OptFns)
	assert.IsType(t, sns.DefaultMarshalerUnmarshaler{}, got.Marshaler)
}

func TestBuildSNSWithEndpointUsesLocalstackAccount(t *testing.T) {
	stubAWS(t)

	var gotAccount string
	TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
		gotAccount = accountID
		return &sns.GenerateArnTopicResolver{}, nil
	}
	var got sns.PublisherConfig
	SNSPublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		got = cfg
		return mockPublisher{}, nil
	}

	_, err := Build(context.Background(), "alerts", plugin.Params{
		"endpoint":          "http://localhost:4566",
		"access_key_id":     "test",
		"secret_access_key": "test",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, localstackAccountID, gotAccount)
	assert.Len(t, got.OptFns, 1)
	assert.Equal(t, "eu-central-1", got.AWSConfig.Region)
}

func TestBuildSQS(t *testing.T) {
	stubAWS(t)

	var got sqs.PublisherConfig
	SQSPublisherFactory = func(cfg sqs.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		got = cfg
		return mockPublisher{}, nil
	}

	_, err := Build(context.Background(), "queue", plugin.Params{
		"mode":     "SQS",
		"endpoint": "http://localhost:4566",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Len(t, got.OptFns, 1)
	assert.IsType(t, sqs.DefaultMarshalerUnmarshaler{}, got.Marshaler)
}

func TestBuildErrors(t *testing.T) {
	t.Run("unknown mode", func(t *testing.T) {
		stubAWS(t)
		_, err := Build(context.Background(), "x", plugin.Params{"mode": "kinesis"}, watermill.NopLogger{})
		assert.ErrorIs(t, err, errspkg.ErrInvalidParam)
	})

	t.Run("bad endpoint", func(t *testing.T) {
		stubAWS(t)
		_, err := Build(context.Background(), "x", plugin.Params{"endpoint": "://nope"}, watermill.NopLogger{})
		assert.ErrorIs(t, err, errspkg.ErrInvalidParam)
	})

	t.Run("config loader fails", func(t *testing.T) {
		stubAWS(t)
		DefaultConfigLoader = func(ctx context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("config error")
		}
		_, err := Build(context.Background(), "x", plugin.Params{}, watermill.NopLogger{})
		assert.ErrorContains(t, err, "config error")
	})

	t.Run("topic resolver fails", func(t *testing.T) {
		stubAWS(t)
		TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
			return nil, errors.New("resolver error")
		}
		_, err := Build(context.Background(), "x", plugin.Params{}, watermill.NopLogger{})
		assert.ErrorContains(t, err, "resolver error")
	})
}

func TestResolveAccountID(t *testing.T) {
	endpoint := mustSettings(t, plugin.Params{"endpoint": "http://localhost:4566", "account_id": "42"})
	assert.Equal(t, localstackAccountID, resolveAccountID(endpoint, watermill.NopLogger{}))

	real := mustSettings(t, plugin.Params{"account_id": "42"})
	assert.Equal(t, "42", resolveAccountID(real, watermill.NopLogger{}))
}

func TestStaticCredentialsProvider(t *testing.T) {
	creds, err := staticCredentialsProvider("AKID", "SECRET").Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
	assert.Equal(t, "SECRET", creds.SecretAccessKey)
}

func mustSettings(t *testing.T, params plugin.Params) settings {
	t.Helper()
	s, err := parseSettings("x", params)
	require.NoError(t, err)
	return s
}
