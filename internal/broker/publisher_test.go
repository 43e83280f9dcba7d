package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pixcharge/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	fail   int
	closed bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.fail > 0 {
		f.fail--
		return errors.New("channel closed")
	}
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "pix.charge.concluded", RoutingKey(domain.StatusConcluded))
	assert.Equal(t, "pix.charge.removed_by_psp", RoutingKey(domain.StatusRemovedByPSP))
}

func TestPublishStatus(t *testing.T) {
	var channels []*fakeChannel
	p := NewPublisher("amqp://localhost", "pix.events", zerolog.Nop())
	p.dial = func(url, exchange string) (*amqp.Connection, channel, error) {
		ch := &fakeChannel{}
		if len(channels) == 0 {
			ch.fail = 1
		}
		channels = append(channels, ch)
		return nil, ch, nil
	}

	ev := domain.StatusChange{Txid: "T1", From: domain.StatusActive, To: domain.StatusConcluded, Source: "webhook", At: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, p.PublishStatus(context.Background(), ev))

	require.Len(t, channels, 2, "a failed publish redials once")
	assert.True(t, channels[0].closed)
	require.Len(t, channels[1].sent, 1)
	sent := channels[1].sent[0]
	assert.Equal(t, "pix.events", sent.exchange)
	assert.Equal(t, "pix.charge.concluded", sent.key)

	var got domain.StatusChange
	require.NoError(t, json.Unmarshal(sent.msg.Body, &got))
	assert.Equal(t, ev, got)
}

func TestPublishStatus_DialFailure(t *testing.T) {
	p := NewPublisher("amqp://localhost", "pix.events", zerolog.Nop())
	p.dial = func(url, exchange string) (*amqp.Connection, channel, error) {
		return nil, nil, errors.New("connection refused")
	}
	err := p.PublishStatus(context.Background(), domain.StatusChange{Txid: "T1", To: domain.StatusConcluded})
	assert.Error(t, err)
	assert.Error(t, p.Connect())
}
