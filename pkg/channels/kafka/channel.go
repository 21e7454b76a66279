// Package kafka provides the watermill Kafka pub/sub for lifecycle events shared across processes.
package kafka

import (
	"errors"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/taskflow/pkg/events"
)

var ErrNoBrokers = errors.New("no Kafka brokers configured")

type Config struct {
	Brokers []string
	// ConsumerGroup defaults to "cg-" + ClientID.
	ConsumerGroup string
	ClientID      string
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(raw string) []string {
	brokers := make([]string, 0)

	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// partitionKey keeps every event of a workflow on one partition, preserving their order.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}

func CreateChannel(logger watermill.LoggerAdapter, config Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(config.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "cg-" + config.ClientID
	}

	marshaler := kafka.NewWithPartitioningMarshaler(partitionKey)

	consumerConfig := kafka.DefaultSaramaSubscriberConfig()
	consumerConfig.ClientID = config.ClientID
	consumerConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               config.Brokers,
		Unmarshaler:           marshaler,
		OverwriteSaramaConfig: consumerConfig,
		ConsumerGroup:         config.ConsumerGroup,
		OTELEnabled:           true,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	producerConfig := kafka.DefaultSaramaSyncPublisherConfig()
	producerConfig.ClientID = config.ClientID
	producerConfig.Producer.RequiredAcks = sarama.WaitForLocal
	producerConfig.Producer.Partitioner = sarama.NewHashPartitioner

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               config.Brokers,
		Marshaler:             marshaler,
		OverwriteSaramaConfig: producerConfig,
		OTELEnabled:           true,
	}, logger)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return publisher, subscriber, nil
}
