package main

import (
	"context"
	"fmt"

	"github.com/dukex/taskflow/pkg/cmd"
	"github.com/dukex/taskflow/pkg/log"
	"github.com/dukex/taskflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Create the workflows defined in a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflows YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "workspace-id",
				Usage: "Override the workspace of every imported workflow",
			},
			databaseURLFlag(),
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("import")

			file, err := readWorkflowsFile(command.String("file"))
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			workflowService := services.NewWorkflow(persistence, logger)
			workspaceID := command.String("workspace-id")

			for i, req := range file.Workflows {
				if workspaceID != "" {
					req.WorkspaceID = workspaceID
				}

				workflow, err := workflowService.Create(ctx, req)
				if err != nil {
					return fmt.Errorf("workflow %d (%s): %w", i, req.Name, err)
				}

				logger.InfoContext(ctx, "Imported workflow", "workflow_id", workflow.ID, "name", workflow.Name)
			}

			logger.InfoContext(ctx, "Import finished", "count", len(file.Workflows))

			return nil
		},
	}
}
