package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier sends events as JSON message bodies. FIFO queues get the file
// id as group and deduplication id, so a replayed completion is delivered
// once.
type SQSNotifier struct {
	client   sqsAPI
	queueURL string
}

func NewSQSNotifier(client sqsAPI, queueURL string) *SQSNotifier {
	return &SQSNotifier{client: client, queueURL: queueURL}
}

func (n *SQSNotifier) UploadCompleted(ctx context.Context, ev models.UploadCompleted) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(eventUploadCompleted)},
		},
	}
	if strings.HasSuffix(n.queueURL, ".fifo") {
		in.MessageGroupId = aws.String(ev.FileID)
		in.MessageDeduplicationId = aws.String(ev.FileID)
	}

	if _, err := n.client.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

func (n *SQSNotifier) Close() error {
	return nil
}
