// Package playbook parses, validates and stores playbook documents.
package playbook

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var requiredFields = []string{"name", "trigger", "conditions", "actions"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, validates and decodes the playbook stored at path.
func Load(path string) (*models.Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook %s: %w", path, err)
	}

	return Parse(data)
}

// Parse validates and decodes a YAML (or JSON) playbook document.
func Parse(data []byte) (*models.Playbook, error) {
	raw, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	err = Validate(raw)
	if err != nil {
		return nil, err
	}

	return Decode(raw)
}

// ParseDocument decodes a document into its raw mapping without validating it.
func ParseDocument(data []byte) (map[string]any, error) {
	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, models.NewValidationError("Playbook could not be parsed: %v", err)
	}

	if doc == nil {
		return map[string]any{}, nil
	}

	raw, ok := doc.(map[string]any)
	if !ok {
		return nil, models.NewValidationError("Playbook must be a mapping, got %T", doc)
	}

	return raw, nil
}

// Validate checks the structure of a raw playbook document. It reports every
// missing top-level field at once, then the shape of conditions and actions.
func Validate(raw map[string]any) error {
	missing := make([]string, 0)

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)

		return models.NewValidationError("Playbook is missing required fields: %s", strings.Join(missing, ", "))
	}

	err := validateEntries("conditions", "condition", raw["conditions"])
	if err != nil {
		return err
	}

	return validateEntries("actions", "action", raw["actions"])
}

func validateEntries(key string, entryName string, value any) error {
	entries, ok := value.([]any)
	if !ok {
		return models.NewValidationError("'%s' must be a list in the playbook definition.", key)
	}

	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return models.NewValidationError("Each %s requires a 'type' field. Offending entry: %v", entryName, entry)
		}

		if _, ok := m["type"]; !ok {
			return models.NewValidationError("Each %s requires a 'type' field. Offending entry: %v", entryName, entry)
		}
	}

	return nil
}

// Decode converts a raw document that passed Validate into a typed playbook.
// The trigger may be given as a bare type key or as a mapping with "type".
func Decode(raw map[string]any) (*models.Playbook, error) {
	name, ok := raw["name"].(string)
	if !ok && raw["name"] != nil {
		name = fmt.Sprint(raw["name"])
	}

	trigger, err := decodeTrigger(raw["trigger"])
	if err != nil {
		return nil, err
	}

	pb := &models.Playbook{
		Name:       name,
		Trigger:    trigger,
		Conditions: decodeSteps(raw["conditions"]),
		Actions:    decodeSteps(raw["actions"]),
	}

	err = validate.Struct(pb)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return nil, models.NewValidationError("Playbook is invalid: %s", describe(validationErrors))
		}

		return nil, models.NewValidationError("Playbook is invalid: %v", err)
	}

	return pb, nil
}

func decodeTrigger(value any) (models.StepSpec, error) {
	switch t := value.(type) {
	case string:
		return models.StepSpec{Type: t, Config: map[string]any{"type": t}}, nil
	case map[string]any:
		return stepFromMap(t), nil
	default:
		return models.StepSpec{}, models.NewValidationError("'trigger' must be a type name or a mapping with a 'type' field, got %v", value)
	}
}

func decodeSteps(value any) []models.StepSpec {
	entries, _ := value.([]any)

	steps := make([]models.StepSpec, 0, len(entries))
	for _, entry := range entries {
		m, _ := entry.(map[string]any)
		steps = append(steps, stepFromMap(m))
	}

	return steps
}

func stepFromMap(m map[string]any) models.StepSpec {
	step := models.StepSpec{Config: m}

	switch t := m["type"].(type) {
	case string:
		step.Type = t
	case nil:
	default:
		step.Type = fmt.Sprint(t)
	}

	return step
}

func describe(validationErrors validator.ValidationErrors) string {
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fmt.Sprintf("field '%s' failed '%s'", fe.Namespace(), fe.Tag()))
	}

	return strings.Join(messages, "; ")
}
