// Package models defines the core domain models for playbook execution.
package models

// StepSpec is the declaration of one trigger, condition or action in a
// playbook. Type selects the implementation; Config carries the full entry,
// including "type", as written by the author.
type StepSpec struct {
	Type   string         `json:"type"   yaml:"type"   validate:"required"`
	Config map[string]any `json:"config" yaml:"config"`
}

// Field returns a config value by key.
func (s StepSpec) Field(key string) any {
	return s.Config[key]
}

// Playbook is the parsed, validated representation of a playbook document.
type Playbook struct {
	Name       string     `json:"name"       yaml:"name"       validate:"required"`
	Trigger    StepSpec   `json:"trigger"    yaml:"trigger"`
	Conditions []StepSpec `json:"conditions" yaml:"conditions" validate:"dive"`
	Actions    []StepSpec `json:"actions"    yaml:"actions"    validate:"dive"`
}
