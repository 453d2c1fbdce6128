// Package template renders text/template expressions over an execution context.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/soarflow/pkg/fieldpath"
	"github.com/dukex/soarflow/pkg/models"
)

// ContextData exposes the context fields at the top level and the process
// environment under "env".
func ContextData(executionCtx *models.ExecutionContext) map[string]any {
	data := executionCtx.AsMap()
	data["env"] = getEnvVars()

	return data
}

// RenderWithContext renders input over the execution context and returns the
// typed result.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	return Render(input, ContextData(executionCtx))
}

// RenderString executes the template and returns the raw text.
func RenderString(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("render").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"field": func(path string, m map[string]any) any {
				v := fieldpath.Get(m, path)
				if fieldpath.IsMissing(v) {
					return nil
				}

				return v
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// Render executes the template and converts the output to JSON values,
// numbers or booleans when it looks like one.
func Render(templateStr string, data any) (any, error) {
	result, err := RenderString(templateStr, data)
	if err != nil {
		return nil, err
	}

	result = strings.TrimSpace(result)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
