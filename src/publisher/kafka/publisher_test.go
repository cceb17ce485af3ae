package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func quiet() *logger.Logger {
	return logger.NewLoggerWithWriter(nil, "kafka", io.Discard)
}

func TestPublisherKeysByTicker(t *testing.T) {
	w := &fakeWriter{}
	p := newBarPublisher(w, "bars", quiet())

	bars := []models.MBar{{Time: 60000, Close: 1}, {Time: 120000, Close: 2}}
	require.NoError(t, p.WriteBars(context.Background(), "0xcake", "1", bars))
	require.Len(t, w.msgs, 2)

	for i, m := range w.msgs {
		assert.Equal(t, "0xcake", string(m.Key))

		var msg BarMessage
		require.NoError(t, json.Unmarshal(m.Value, &msg))
		assert.Equal(t, "1", msg.Resolution)
		assert.Equal(t, bars[i], msg.Bar)
	}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisherWrapsWriteError(t *testing.T) {
	p := newBarPublisher(&fakeWriter{err: errors.New("broker down")}, "bars", quiet())

	err := p.WriteBars(context.Background(), "0xcake", "1", []models.MBar{{Time: 1}})
	assert.True(t, helpers.IsTransport(err))
}

func TestPublisherNeedsBrokers(t *testing.T) {
	_, err := NewBarPublisher(models.MKafkaConfig{}, quiet())
	assert.Error(t, err)

	p, err := NewBarPublisher(models.MKafkaConfig{Brokers: []string{"localhost:9092"}}, quiet())
	require.NoError(t, err)
	assert.Equal(t, DefaultTopic, p.topic)
	assert.NoError(t, p.Close())
}
