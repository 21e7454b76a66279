package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/taskflow/pkg/cmd"
	"github.com/dukex/taskflow/pkg/log"
	"github.com/dukex/taskflow/pkg/otelhelper"
	"github.com/dukex/taskflow/pkg/triggers/queue"
	cli "github.com/urfave/cli/v3"
)

const (
	serviceName          = "taskflow-api"
	defaultEgressTimeout = 30 * time.Second
	defaultEventStream   = "taskflow:events"
)

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseURLFlag(),
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers, used when event-bus is kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			logLevelFlag(),
			&cli.BoolFlag{
				Name:    "preserve-logs-on-failure",
				Usage:   "Keep step logs on executions that fail",
				Sources: cli.EnvVars("PRESERVE_LOGS_ON_FAILURE"),
			},
			&cli.StringFlag{
				Name:    "webhook-base-url",
				Usage:   "Public base URL prepended to webhook trigger URLs",
				Value:   fmt.Sprintf("http://localhost:%d", defaultPort),
				Sources: cli.EnvVars("WEBHOOK_BASE_URL"),
			},
			&cli.DurationFlag{
				Name:    "egress-timeout",
				Usage:   "Timeout for outbound HTTP calls made by webhook steps",
				Value:   defaultEgressTimeout,
				Sources: cli.EnvVars("EGRESS_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for event triggers; disabled when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-stream",
				Usage:   "Redis stream consumed by event triggers",
				Value:   defaultEventStream,
				Sources: cli.EnvVars("EVENT_STREAM"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if command.Bool("otel-enabled") {
				shutdown, err := otelhelper.Setup(ctx, serviceName)
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.Error("Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			logger.Info("Initializing Taskflow API")

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			if err := watchLifecycle(ctx, logger, eventBus); err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			api := NewAPI(logger, persistence, eventBus, Options{
				PreserveLogsOnFailure: command.Bool("preserve-logs-on-failure"),
				WebhookBaseURL:        command.String("webhook-base-url"),
				EgressTimeout:         command.Duration("egress-timeout"),
			})

			if redisURL := command.String("redis-url"); redisURL != "" {
				trigger, err := api.EventTrigger(queue.Config{
					RedisURL: redisURL,
					Stream:   command.String("event-stream"),
				})
				if err != nil {
					return err
				}

				if err := trigger.Start(ctx); err != nil {
					return err
				}

				defer func() {
					if err := trigger.Stop(context.Background()); err != nil {
						logger.Error("Failed to stop event trigger", "error", err)
					}
				}()
			}

			return api.Start(ctx, command.Int("port"))
		},
	}
}

func databaseURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "postgres:// URL or a directory for file persistence",
		Value:   "./data",
		Sources: cli.EnvVars("DATABASE_URL"),
	}
}

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}
