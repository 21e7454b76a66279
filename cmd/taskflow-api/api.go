package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/taskflow/pkg/egress"
	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/dukex/taskflow/pkg/services"
	"github.com/dukex/taskflow/pkg/triggers/queue"
	"github.com/dukex/taskflow/pkg/web"
	"github.com/dukex/taskflow/pkg/webhook"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type Options struct {
	PreserveLogsOnFailure bool
	WebhookBaseURL        string
	EgressTimeout         time.Duration
}

type API struct {
	logger           *slog.Logger
	workflowService  *services.Workflow
	executionService *services.Execution
	gateway          *webhook.Gateway
	validate         *validator.Validate
}

// NewAPI wires the engine, services and webhook gateway. eventBus may be nil.
func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	options Options,
) *API {
	var publisher eventbus.EventPublisher
	if eventBus != nil {
		publisher = eventBus
	}

	executor := engine.NewExecutor(
		persistence.NewDomainStore(p),
		egress.NewClient(options.EgressTimeout, logger),
		logger,
	)
	controller := engine.NewController(
		p,
		executor,
		publisher,
		engine.Config{PreserveLogsOnFailure: options.PreserveLogsOnFailure},
		logger,
	)
	executionService := services.NewExecution(p, controller)

	return &API{
		logger:           logger,
		workflowService:  services.NewWorkflow(p, logger),
		executionService: executionService,
		gateway:          webhook.NewGateway(p, executionService, publisher, options.WebhookBaseURL, logger),
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

// EventTrigger builds a Redis Streams consumer that starts workflows listening to published events.
func (a *API) EventTrigger(config queue.Config) (*queue.Trigger, error) {
	return queue.NewTrigger(config, a.workflowService, a.executionService, a.logger)
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workflowService, a.executionService, a.gateway, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Taskflow API")
	})

	handlers.Register(app)

	return app
}

// Start serves until ctx is done, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "Taskflow API listening", "port", port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "Shutting down Taskflow API")

		return app.Shutdown()
	}
}
