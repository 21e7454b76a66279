// Package queue starts event-triggered workflows from a Redis stream.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/otelhelper"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// TriggeredBy tags executions started by a stream entry.
const TriggeredBy = "event"

const (
	defaultConsumerGroup = "taskflow-triggers"
	readBlock            = time.Second
	readCount            = 10
	retryInterval        = time.Second
	pingTimeout          = 5 * time.Second
)

// Matcher finds active workflows listening to an event name.
type Matcher interface {
	ListByTriggerEvent(ctx context.Context, event string) ([]*models.Workflow, error)
}

// Executor starts workflow executions.
type Executor interface {
	Execute(ctx context.Context, workflowID string, input any, triggeredBy string) (*engine.Result, error)
}

type Config struct {
	RedisURL      string
	Stream        string
	ConsumerGroup string
	Consumer      string
}

func (c Config) Validate() error {
	if c.RedisURL == "" {
		return errors.New("event trigger redis url is required")
	}

	if c.Stream == "" {
		return errors.New("event trigger stream name is required")
	}

	return nil
}

type Trigger struct {
	config   Config
	client   redis.UniversalClient
	matcher  Matcher
	executor Executor
	logger   *slog.Logger
	tracer   trace.Tracer
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(config Config, matcher Matcher, executor Executor, logger *slog.Logger) (*Trigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	if config.ConsumerGroup == "" {
		config.ConsumerGroup = defaultConsumerGroup
	}

	if config.Consumer == "" {
		config.Consumer, _ = os.Hostname()
		if config.Consumer == "" {
			config.Consumer = "taskflow"
		}
	}

	return &Trigger{
		config:   config,
		client:   redis.NewClient(options),
		matcher:  matcher,
		executor: executor,
		tracer:   otelhelper.Tracer(),
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "event_trigger",
			"stream", config.Stream,
			"consumer_group", config.ConsumerGroup,
		),
	}, nil
}

// Start connects to Redis, ensures the consumer group exists and begins consuming.
func (t *Trigger) Start(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Starting event trigger")

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := t.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	err := t.client.XGroupCreateMkStream(ctx, t.config.Stream, t.config.ConsumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopCh:
			t.logger.InfoContext(ctx, "Event consumer stopped")

			return
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Context cancelled, stopping event consumer")

			return
		default:
			if err := t.readBatch(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}

				t.logger.ErrorContext(ctx, "Error reading event stream", "error", err)
				time.Sleep(retryInterval)
			}
		}
	}
}

func (t *Trigger) readBatch(ctx context.Context) error {
	streams, err := t.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    t.config.ConsumerGroup,
		Consumer: t.config.Consumer,
		Streams:  []string{t.config.Stream, ">"},
		Count:    readCount,
		Block:    readBlock,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, entry := range stream.Messages {
			message, err := DecodeMessage(entry.ID, entry.Values)
			if err != nil {
				t.logger.WarnContext(ctx, "Skipping stream entry", "entry_id", entry.ID, "error", err)
			} else {
				t.Dispatch(ctx, message)
			}

			if err := t.client.XAck(ctx, t.config.Stream, t.config.ConsumerGroup, entry.ID).Err(); err != nil {
				t.logger.ErrorContext(ctx, "Failed to acknowledge stream entry", "entry_id", entry.ID, "error", err)
			}
		}
	}

	return nil
}

// Dispatch executes every active workflow whose event trigger matches the
// message and returns how many executions completed. Failed executions are
// logged; the controller has already persisted them.
func (t *Trigger) Dispatch(ctx context.Context, message *Message) int {
	ctx, span := otelhelper.StartSpan(ctx, t.tracer, "event.dispatch", otelhelper.EventName(message.Event))
	defer span.End()

	logger := t.logger.With("event", message.Event, "entry_id", message.ID)

	workflows, err := t.matcher.ListByTriggerEvent(ctx, message.Event)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to match workflows", "error", err)

		return 0
	}

	completed := 0

	for _, workflow := range workflows {
		result, err := t.executor.Execute(ctx, workflow.ID, message.Payload, TriggeredBy)
		if err != nil {
			logger.ErrorContext(ctx, "Event-triggered execution failed", "workflow_id", workflow.ID, "error", err)

			continue
		}

		completed++

		logger.InfoContext(ctx, "Event-triggered execution completed",
			"workflow_id", workflow.ID, "execution_id", result.ExecutionID)
	}

	return completed
}

// Publish appends an event to the stream.
func (t *Trigger) Publish(ctx context.Context, event string, payload any) (string, error) {
	values, err := EncodeMessage(event, payload)
	if err != nil {
		return "", err
	}

	return t.client.XAdd(ctx, &redis.XAddArgs{Stream: t.config.Stream, Values: values}).Result()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping event trigger")

	close(t.stopCh)
	t.wg.Wait()

	if err := t.client.Close(); err != nil {
		t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
	}

	return nil
}
