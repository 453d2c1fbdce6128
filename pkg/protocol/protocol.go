// Package protocol defines the interfaces and contracts for pluggable playbook components.
package protocol

// Factory describes a component implementation and how to configure it.
type Factory interface {
	// ID returns the type key the component is registered under. An empty ID
	// makes the registry derive one from the implementation name.
	ID() string

	// Name returns the human-readable name for this component.
	Name() string

	// Description returns a description of what this component does.
	Description() string

	// Schema returns the JSON schema the step configuration must satisfy.
	Schema() map[string]any
}
