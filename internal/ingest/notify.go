package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/flateze/flateze/internal/model"
)

// Notifier is told about every newly created bill. Failures are logged by
// the caller and never undo the creation.
type Notifier interface {
	BillCreated(ctx context.Context, bill model.Bill) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) BillCreated(context.Context, model.Bill) error { return nil }

// EventBillCreated is the event type published for a new bill.
const EventBillCreated = "bill.created"

// BillEvent is the JSON payload of a bill.created message.
type BillEvent struct {
	Event       string    `json:"event"`
	BillID      string    `json:"bill_id"`
	DedupeKey   string    `json:"dedupe_key"` // sha256 of flat, company, amount and bill date
	FlatID      string    `json:"flat_id"`
	Company     string    `json:"company_name"`
	Type        string    `json:"bill_type"`
	Amount      string    `json:"amount"`
	DueDate     string    `json:"due_date,omitempty"`
	BillDate    time.Time `json:"bill_date"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBillEvent builds the event for b.
func NewBillEvent(b model.Bill) BillEvent {
	ev := BillEvent{
		Event:       EventBillCreated,
		BillID:      b.ID,
		DedupeKey:   b.Key().Hash(),
		FlatID:      b.FlatID,
		Company:     b.Company,
		Type:        string(b.Type),
		Amount:      b.Amount.StringFixed(2),
		BillDate:    b.BillDate.UTC(),
		ReferenceID: b.ReferenceID,
		CreatedAt:   b.CreatedAt.UTC(),
	}
	if b.DueDate != nil {
		ev.DueDate = b.DueDate.Format("2006-01-02")
	}
	return ev
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes bill.created events keyed by flat id.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

// NewKafkaNotifier creates a synchronous producer for topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaNotifier{writer: w, topic: topic}
}

func (n *KafkaNotifier) BillCreated(ctx context.Context, b model.Bill) error {
	body, err := json.Marshal(NewBillEvent(b))
	if err != nil {
		return fmt.Errorf("marshalling bill event: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Topic: n.topic,
		Key:   []byte(b.FlatID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(EventBillCreated)},
			{Key: "idempotency-key", Value: []byte(b.Key().Hash())},
		},
		Time: b.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("writing kafka message: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
