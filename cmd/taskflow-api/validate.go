package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/log"
	"github.com/dukex/taskflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the workflows defined in a YAML file without storing them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflows YAML file",
				Required: true,
			},
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("validate")

			file, err := readWorkflowsFile(command.String("file"))
			if err != nil {
				return err
			}

			return validateWorkflows(ctx, logger, services.NewWorkflow(nil, logger), file)
		},
	}
}

func validateWorkflows(ctx context.Context, logger *slog.Logger, workflowService *services.Workflow, file *WorkflowsFile) error {
	var errs []error

	for i := range file.Workflows {
		req := &file.Workflows[i]

		if err := workflowService.Validate(req); err != nil {
			errs = append(errs, fmt.Errorf("workflow %d (%s): %w", i, req.Name, err))

			continue
		}

		logger.InfoContext(ctx, "Workflow is valid", "name", req.Name)
	}

	return errors.Join(errs...)
}
