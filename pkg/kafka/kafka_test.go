package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(100*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}

func TestEncode(t *testing.T) {
	b, ct, err := encode([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
	assert.Equal(t, "application/octet-stream", ct)

	b, ct, err = encode(map[string]string{"symbol": "MSFT"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"MSFT"}`, string(b))
	assert.Equal(t, "application/json", ct)

	_, _, err = encode(make(chan int))
	assert.Error(t, err)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewConsumer()
	assert.ErrorIs(t, err, ErrNoBrokers)
}

type stubHandler struct {
	topic string
	err   error
	calls int
}

func (h *stubHandler) Topic() string { return h.topic }

func (h *stubHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.err != nil {
		return h.err
	}
	return nil
}

func TestConsumerProcessRetries(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)

	h := &stubHandler{topic: "control", err: errors.New("bad")}
	c.RegisterHandler(h)

	failures := 0
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { failures++ }})
	c.process(&message{topic: "control", km: kafka.Message{Value: []byte("{}")}})

	assert.Equal(t, 3, h.calls, "one attempt plus two retries")
	assert.Equal(t, 2, failures)
}

func TestConsumerDoesNotRetryPermanentErrors(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(3, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)

	h := &stubHandler{topic: "control", err: Permanent(errors.New("decode control command"))}
	c.RegisterHandler(h)

	failures := 0
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { failures++ }})
	c.process(&message{topic: "control", km: kafka.Message{Value: []byte("not json")}})

	assert.Equal(t, 1, h.calls)
	assert.Zero(t, failures)
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	cause := errors.New("empty symbol")
	err := Permanent(cause)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.ErrorIs(t, err, cause)
}

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	err := safeHandle(panicHandler{}, context.Background(), nil)
	assert.ErrorContains(t, err, "handler panic")
}

type panicHandler struct{}

func (panicHandler) Topic() string                        { return "p" }
func (panicHandler) Handle(context.Context, []byte) error { panic("boom") }
