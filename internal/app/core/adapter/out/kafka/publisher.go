package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// DefaultTopic 預設的事件 topic
const DefaultTopic = "ledger.operation_committed"

// messageWriter kafka.Writer 中用到的部分 (測試可替換)
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 把交易完成事件送到 Kafka
//
// 以擁有者 ID 當作 message key，同一個使用者的事件會落在同一個 partition 並保持順序。
type Publisher struct {
	writer messageWriter
}

// NewPublisher 建立 Kafka publisher
//
// 參數:
//
//	brokers: broker 位址
//	topic: 空字串時使用 DefaultTopic
//	async: true 時 WriteMessages 不等待 broker 回應 (不影響交易回應時間)
func NewPublisher(brokers []string, topic string, async bool) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			Async:        async,
		},
	}
}

// PublishOperationCommitted 發送事件
func (p *Publisher) PublishOperationCommitted(ctx context.Context, event *domain.OperationCommitted) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close 關閉 writer，會送出尚未送出的訊息
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func newMessage(event *domain.OperationCommitted) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("operation_committed")},
			{Key: "operation_type", Value: []byte(event.Type)},
		},
	}, nil
}

var _ usecase.EventPublisher = (*Publisher)(nil)
