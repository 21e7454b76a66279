// Package template resolves {{path.to.value}} tokens against a workflow execution context.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/taskflow/pkg/models"
)

var tokenPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Interpolate replaces every {{path}} token of a string value with the value
// found at path in the execution context. Non-string values are returned
// unchanged. A token whose path does not resolve is left verbatim. There is no
// escape for literal "{{...}}" text.
func Interpolate(value any, executionCtx *models.ExecutionContext) any {
	input, ok := value.(string)
	if !ok || !strings.Contains(input, "{{") {
		return value
	}

	root := executionCtx.Root()

	return tokenPattern.ReplaceAllStringFunc(input, func(token string) string {
		resolved, found := lookup(root, token[2:len(token)-2])
		if !found {
			return token
		}

		return Stringify(resolved)
	})
}

// InterpolateString is Interpolate for callers that hold a string.
func InterpolateString(input string, executionCtx *models.ExecutionContext) string {
	result, _ := Interpolate(input, executionCtx).(string)

	return result
}

// Resolve behaves like Interpolate, except that a string made of exactly one
// token yields the raw value at its path (a slice stays a slice).
func Resolve(value any, executionCtx *models.ExecutionContext) any {
	input, ok := value.(string)
	if !ok {
		return value
	}

	trimmed := strings.TrimSpace(input)

	match := tokenPattern.FindStringSubmatchIndex(trimmed)
	if match != nil && match[0] == 0 && match[1] == len(trimmed) {
		if resolved, found := lookup(executionCtx.Root(), trimmed[match[2]:match[3]]); found {
			return resolved
		}
	}

	return Interpolate(value, executionCtx)
}

// Lookup walks a dotted path through the execution context.
func Lookup(executionCtx *models.ExecutionContext, path string) (any, bool) {
	return lookup(executionCtx.Root(), path)
}

// lookup walks path segments from the context root. Paths whose first segment
// is not input, variables or logs are resolved against the variables map, so
// "{{x}}" and "{{variables.x}}" name the same value.
func lookup(root map[string]any, path string) (any, bool) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}

	var current any = root
	if _, isRoot := root[segments[0]]; !isRoot {
		current = root["variables"]
	}

	for _, segment := range segments {
		next, found := child(current, segment)
		if !found {
			return nil, false
		}

		current = next
	}

	return current, true
}

func child(value any, segment string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		next, found := v[segment]

		return next, found
	case map[string]string:
		next, found := v[segment]

		return next, found
	case []any:
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= len(v) {
			return nil, false
		}

		return v[index], true
	default:
		return nil, false
	}
}

// Stringify renders a resolved value the way it is embedded into text.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case json.Number:
		return v.String()
	case map[string]any, []any, map[string]string:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}
