package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
)

// Publisher is a notifier that owns a connection.
type Publisher interface {
	UploadCompleted(ctx context.Context, ev models.UploadCompleted) error
	Close() error
}

// Options selects and configures the backend.
type Options struct {
	Backend      string
	Region       string
	SQSQueueURL  string
	KafkaBrokers []string
	KafkaTopic   string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// New returns the publisher for opts.Backend: "none" (or empty), "sqs" or
// "kafka". SQS credentials come from the default AWS chain.
func New(ctx context.Context, opts Options) (Publisher, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "none":
		return Noop{}, nil
	case "sqs":
		if opts.SQSQueueURL == "" {
			return nil, errors.New("sqs notifier requires a queue url")
		}
		awsCfg, err := loadDefaultAWSConfig(ctx, config.WithRegion(opts.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSQSNotifier(sqs.NewFromConfig(awsCfg), opts.SQSQueueURL), nil
	case "kafka":
		if len(opts.KafkaBrokers) == 0 || opts.KafkaTopic == "" {
			return nil, errors.New("kafka notifier requires brokers and a topic")
		}
		return NewKafkaNotifier(opts.KafkaBrokers, opts.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", opts.Backend)
	}
}
