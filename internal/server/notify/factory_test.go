package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)

	p, err = New(ctx, Options{Backend: "Kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"})
	require.NoError(t, err)
	assert.IsType(t, &KafkaNotifier{}, p)
	require.NoError(t, p.Close())

	_, err = New(ctx, Options{Backend: "kafka"})
	require.Error(t, err)

	_, err = New(ctx, Options{Backend: "sqs"})
	require.Error(t, err)

	_, err = New(ctx, Options{Backend: "carrier-pigeon"})
	require.ErrorContains(t, err, "unknown notify backend")
}

func TestNew_SQS(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var region string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		var lo config.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		region = lo.Region
		return aws.Config{Region: lo.Region}, nil
	}

	p, err := New(context.Background(), Options{Backend: "sqs", Region: "eu-west-1", SQSQueueURL: "https://sqs/q"})
	require.NoError(t, err)
	assert.IsType(t, &SQSNotifier{}, p)
	assert.Equal(t, "eu-west-1", region)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	_, err = New(context.Background(), Options{Backend: "sqs", SQSQueueURL: "https://sqs/q"})
	require.ErrorContains(t, err, "load aws config: no creds")
}
