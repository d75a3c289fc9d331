package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geobus/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	km := r.queue[0]
	r.queue = r.queue[1:]
	r.mu.Unlock()
	return km, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func header(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("TICKET1").
		WithJSON(map[string]string{"ticket_id": "TICKET1"}).
		WithEventType("ticket.confirmed").
		WithCorrelationID("req-1").
		Build()
	require.NoError(t, err)
	return msg
}

func TestMessageBuilder(t *testing.T) {
	msg := buildMessage(t)

	assert.Equal(t, "TICKET1", msg.Key)
	assert.JSONEq(t, `{"ticket_id":"TICKET1"}`, string(msg.Value))
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "ticket.confirmed", msg.GetEventType())
	assert.Equal(t, "req-1", msg.GetCorrelationID())

	_, err := NewMessage().WithJSON(make(chan int)).Build()
	assert.Error(t, err)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := buildMessage(t)
	assert.Equal(t, 0, msg.GetRetryCount())
	msg.IncrementRetryCount()
	msg.IncrementRetryCount()
	assert.Equal(t, 2, msg.GetRetryCount())
}

func TestDecodeValue_BadPayloadIsPermanent(t *testing.T) {
	msg := Message{Value: []byte("{not json")}
	var out map[string]any
	err := msg.DecodeValue(&out)
	require.Error(t, err)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"explicit transient", NewTransientError("smtp down", errors.New("x")), ErrorTypeTransient},
		{"explicit permanent", NewPermanentError("bad", nil), ErrorTypePermanent},
		{"deadline", context.DeadlineExceeded, ErrorTypeTransient},
		{"pattern", errors.New("dial tcp: connection refused"), ErrorTypeTransient},
		{"other", errors.New("ticket not found"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}

	assert.True(t, ShouldRetry(context.DeadlineExceeded, 0, 3))
	assert.False(t, ShouldRetry(context.DeadlineExceeded, 3, 3))
	assert.False(t, ShouldRetry(errors.New("ticket not found"), 0, 3))
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "tickets", log: logger.NewNop()}

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		seen = append(seen, msg.Topic)
		return next(ctx, msg)
	})

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	require.Len(t, w.written, 1)
	assert.Equal(t, "TICKET1", string(w.written[0].Key))
	assert.Equal(t, "ticket.confirmed", header(w.written[0], HeaderEventType))
	assert.Equal(t, []string{"tickets"}, seen)
}

func TestProducer_RejectsEmptyKeyAndValue(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, topic: "tickets", log: logger.NewNop()}

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	cause := errors.New("leader not available")
	dlq := &fakeWriter{}
	p := &Producer{writer: &fakeWriter{err: cause}, dlqWriter: dlq, topic: "tickets", dlqTopic: "tickets.dlq", log: logger.NewNop()}

	err := p.Publish(context.Background(), buildMessage(t))
	assert.ErrorIs(t, err, cause)
	require.Len(t, dlq.written, 1)
	assert.Equal(t, "tickets", header(dlq.written[0], HeaderOriginalTopic))
	assert.Equal(t, cause.Error(), header(dlq.written[0], HeaderDLQError))
}

func TestProducer_Close(t *testing.T) {
	w, dlq := &fakeWriter{}, &fakeWriter{}
	p := &Producer{writer: w, dlqWriter: dlq, topic: "tickets", log: logger.NewNop()}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.True(t, dlq.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t)), ErrProducerClosed)
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	c := &Consumer{
		topic:      "tickets",
		maxRetries: 3,
		log:        logger.NewNop(),
		handler: func(ctx context.Context, msg Message) error {
			attempts++
			if attempts < 3 {
				return NewTransientError("smtp unavailable", nil)
			}
			return nil
		},
	}

	msg := buildMessage(t)
	require.NoError(t, c.process(context.Background(), msg))
	assert.Equal(t, 3, attempts)
}

func TestConsumer_PermanentFailureGoesToDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	attempts := 0
	c := &Consumer{
		topic:      "tickets",
		maxRetries: 3,
		dlqWriter:  dlq,
		log:        logger.NewNop(),
		handler: func(ctx context.Context, msg Message) error {
			attempts++
			return NewPermanentError("ticket not found", nil)
		},
	}

	err := c.process(context.Background(), buildMessage(t))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	require.Len(t, dlq.written, 1)
	assert.Equal(t, "tickets", header(dlq.written[0], HeaderOriginalTopic))
}

func TestConsumer_StartCommitsEveryMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := buildMessage(t)
	first := msg.toKafka()
	first.Offset = 10
	second := msg.toKafka()
	second.Offset = 11

	reader := &fakeReader{queue: []kafka.Message{first, second}, cancel: cancel}
	var handled []int64
	c := &Consumer{
		reader:  reader,
		topic:   "tickets",
		log:     logger.NewNop(),
		handler: func(ctx context.Context, msg Message) error {
			handled = append(handled, msg.Offset)
			if msg.Offset == 11 {
				return NewPermanentError("bad", nil)
			}
			return nil
		},
	}

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{10, 11}, handled)
	assert.Equal(t, []int64{10, 11}, reader.committed)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}
