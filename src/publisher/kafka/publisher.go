package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "datafeed_bars"

// BarMessage is the JSON value of each published record.
type BarMessage struct {
	Ticker     string      `json:"ticker"`
	Resolution string      `json:"resolution"`
	Bar        models.MBar `json:"bar"`
	SentAt     int64       `json:"sent_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// -----------------------------------------------------------------------------

// BarPublisher publishes bars keyed by ticker, so a ticker's bars share a partition.
type BarPublisher struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBarPublisher(cfg models.MKafkaConfig, log *logger.Logger) (*BarPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newBarPublisher(writer, topic, log), nil
}

// -----------------------------------------------------------------------------

func newBarPublisher(writer messageWriter, topic string, log *logger.Logger) *BarPublisher {
	if log == nil {
		log = logger.NewLogger(nil, "KafkaPublisher")
	}
	return &BarPublisher{writer: writer, topic: topic, logger: log}
}

// -----------------------------------------------------------------------------

func (p *BarPublisher) Name() string {
	return "kafka"
}

// -----------------------------------------------------------------------------

func (p *BarPublisher) WriteBars(ctx context.Context, ticker, resolution string, bars []models.MBar) error {
	if len(bars) == 0 {
		return nil
	}

	now := time.Now()
	msgs := make([]kafka.Message, 0, len(bars))
	for _, b := range bars {
		value, err := json.Marshal(BarMessage{Ticker: ticker, Resolution: resolution, Bar: b, SentAt: now.UnixMilli()})
		if err != nil {
			return fmt.Errorf("encode bar: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ticker),
			Value: value,
			Time:  now,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return helpers.NewTransportError(fmt.Sprintf("publish %d bars to %s", len(msgs), p.topic), err)
	}
	p.logger.Debug("Published %d bars for %s/%s", len(msgs), ticker, resolution)
	return nil
}

// -----------------------------------------------------------------------------

func (p *BarPublisher) Close() error {
	return p.writer.Close()
}
