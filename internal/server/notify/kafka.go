package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/quicksend/internal/server/models"
	"github.com/segmentio/kafka-go"
	"github.com/vmihailenco/msgpack/v5"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes msgpack-encoded events keyed by file id, so all
// events of one file land on the same partition.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (n *KafkaNotifier) UploadCompleted(ctx context.Context, ev models.UploadCompleted) error {
	b, err := msgpack.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(ev.FileID),
		Value:   b,
		Headers: []kafka.Header{{Key: "event", Value: []byte(eventUploadCompleted)}},
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
