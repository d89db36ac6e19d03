// Package broker publica os eventos do outbox no Kafka para consumidores
// fora deste serviço.
package broker

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/BruksfildServices01/service-marketplace/internal/events"
)

// MessageWriter é a parte do *kafka.Writer usada aqui.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSink struct {
	writer MessageWriter
	prefix string
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Balancer: &kafka.Hash{},
	})
}

func NewKafkaSink(writer MessageWriter, topicPrefix string) *KafkaSink {
	return &KafkaSink{writer: writer, prefix: topicPrefix}
}

// Topic: <prefixo><tipo do evento>, ex.: marketplace.backjob.applied
func (s *KafkaSink) Topic(eventType string) string {
	return s.prefix + eventType
}

// Handle publica o payload com a chave do agregado, então eventos do
// mesmo agendamento/conversa caem na mesma partição.
func (s *KafkaSink) Handle(ctx context.Context, env events.Envelope) error {
	return s.writer.WriteMessages(ctx, kafka.Message{
		Topic: s.Topic(env.Type),
		Key:   []byte(env.AggregateType + ":" + strconv.FormatUint(uint64(env.AggregateID), 10)),
		Value: env.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(env.ID)},
			{Key: "event_type", Value: []byte(env.Type)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
