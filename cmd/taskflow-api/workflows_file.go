package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dukex/taskflow/pkg/services"
	"gopkg.in/yaml.v3"
)

// WorkflowsFile is the YAML document read by the import and validate commands.
type WorkflowsFile struct {
	Workflows []services.CreateWorkflowRequest `yaml:"workflows"`
}

func readWorkflowsFile(path string) (*WorkflowsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return parseWorkflowsFile(data)
}

func parseWorkflowsFile(data []byte) (*WorkflowsFile, error) {
	var file WorkflowsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workflows file: %w", err)
	}

	if len(file.Workflows) == 0 {
		return nil, errors.New("workflows file defines no workflows")
	}

	return &file, nil
}
