package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/smartscore-service/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(ExamCreated, ExamCreatedEvent{ExamID: "e1"})

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Source != "smartscore-service" {
		t.Errorf("Source = %q", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("Version = %q", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("Event timestamp should not be zero")
	}
}

func TestWatermillEventPublisher_Publish(t *testing.T) {
	bus, err := NewBus(config.KafkaConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscriber.Subscribe(ctx, QuestionsAdded)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publisher := NewWatermillEventPublisher(bus.Publisher, testLogger())
	event := NewEvent(QuestionsAdded, QuestionsAddedEvent{ExamID: "e1", QuestionIDs: []string{"q1", "q2"}})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("message UUID = %s, want %s", msg.UUID, event.ID)
		}
		if msg.Metadata.Get("event_type") != QuestionsAdded {
			t.Errorf("event_type metadata = %q", msg.Metadata.Get("event_type"))
		}
		var decoded struct {
			Type string              `json:"type"`
			Data QuestionsAddedEvent `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if decoded.Type != QuestionsAdded || len(decoded.Data.QuestionIDs) != 2 {
			t.Errorf("decoded payload = %+v", decoded)
		}
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())

	_ = mock.Publish(context.Background(), NewEvent(ExamCreated, nil))
	_ = mock.Publish(context.Background(), NewEvent(RubricCreated, nil))
	if got := len(mock.GetPublishedEvents()); got != 2 {
		t.Fatalf("GetPublishedEvents() = %d, want 2", got)
	}

	mock.ClearEvents()
	if got := len(mock.GetPublishedEvents()); got != 0 {
		t.Errorf("after ClearEvents() = %d, want 0", got)
	}

	mock.Err = errors.New("broker down")
	if err := mock.Publish(context.Background(), NewEvent(ExamCreated, nil)); err == nil {
		t.Error("Publish() should return the configured error")
	}
}

func TestConsumer_DeliversAndDropsPermanentFailures(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(testLogger()))
	defer pubSub.Close()

	consumer, err := NewConsumer(pubSub, testLogger())
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}

	var calls atomic.Int32
	received := make(chan string, 8)
	consumer.Handle("grading", GradingResultsTopic, func(ctx context.Context, payload []byte) error {
		calls.Add(1)
		received <- string(payload)
		if string(payload) == "bad" {
			return Permanent(errors.New("invalid payload"))
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()
	defer consumer.Close()

	select {
	case <-consumer.Running():
	case <-ctx.Done():
		t.Fatal("consumer did not start")
	}

	for _, body := range []string{"bad", "good"} {
		if err := pubSub.Publish(GradingResultsTopic, message.NewMessage(watermill.NewUUID(), []byte(body))); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case got := <-received:
			seen[got] = true
		case <-ctx.Done():
			t.Fatalf("messages not delivered, saw %v", seen)
		}
	}

	// longer than the retry interval
	time.Sleep(300 * time.Millisecond)
	if calls.Load() != 2 {
		t.Errorf("handler calls = %d, want 2 (permanent failure not retried)", calls.Load())
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("not found")
	err := Permanent(base)

	if !IsPermanent(err) || !errors.Is(err, base) {
		t.Errorf("Permanent() = %v, lost identity", err)
	}
	if IsPermanent(base) {
		t.Error("plain error reported as permanent")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
