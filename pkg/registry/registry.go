// Package registry indexes the trigger, condition and action implementations
// available to playbooks by their type key.
package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry holds one catalog per component category. It is populated once at
// process start; after that it is only read and needs no locking.
type Registry struct {
	logger     *slog.Logger
	triggers   *catalog[protocol.TriggerFactory]
	conditions *catalog[protocol.ConditionFactory]
	actions    *catalog[protocol.ActionFactory]
}

// Catalog is a snapshot of every registered factory, keyed by type.
type Catalog struct {
	Triggers   map[string]protocol.TriggerFactory
	Conditions map[string]protocol.ConditionFactory
	Actions    map[string]protocol.ActionFactory
}

// Component describes a registered implementation for listing purposes.
type Component struct {
	Category    models.Category `json:"category"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema,omitempty"`
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:     log,
		triggers:   newCatalog[protocol.TriggerFactory](models.CategoryTrigger),
		conditions: newCatalog[protocol.ConditionFactory](models.CategoryCondition),
		actions:    newCatalog[protocol.ActionFactory](models.CategoryAction),
	}
}

func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	key := r.triggers.register(factory)
	r.logger.Debug("Registered trigger", "type", key)
}

func (r *Registry) RegisterCondition(factory protocol.ConditionFactory) {
	key := r.conditions.register(factory)
	r.logger.Debug("Registered condition", "type", key)
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	key := r.actions.register(factory)
	r.logger.Debug("Registered action", "type", key)
}

// Discover returns the current mappings. Repeated calls return equal catalogs.
func (r *Registry) Discover() Catalog {
	return Catalog{
		Triggers:   r.triggers.snapshot(),
		Conditions: r.conditions.snapshot(),
		Actions:    r.actions.snapshot(),
	}
}

func (r *Registry) ResolveTrigger(key string) (protocol.TriggerFactory, error) {
	return r.triggers.resolve(key)
}

func (r *Registry) ResolveCondition(key string) (protocol.ConditionFactory, error) {
	return r.conditions.resolve(key)
}

func (r *Registry) ResolveAction(key string) (protocol.ActionFactory, error) {
	return r.actions.resolve(key)
}

func (r *Registry) TriggerTypes() []string {
	return r.triggers.keys()
}

func (r *Registry) ConditionTypes() []string {
	return r.conditions.keys()
}

func (r *Registry) ActionTypes() []string {
	return r.actions.keys()
}

// CreateTrigger resolves the trigger type, checks config against the
// factory schema and builds the trigger.
func (r *Registry) CreateTrigger(key string, config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	factory, err := r.triggers.resolve(key)
	if err != nil {
		return nil, err
	}

	err = validateConfig(models.CategoryTrigger, key, factory.Schema(), config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config, logger)
}

func (r *Registry) CreateCondition(key string, config map[string]any, logger *slog.Logger) (protocol.Condition, error) {
	factory, err := r.conditions.resolve(key)
	if err != nil {
		return nil, err
	}

	err = validateConfig(models.CategoryCondition, key, factory.Schema(), config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config, logger)
}

func (r *Registry) CreateAction(key string, config map[string]any, logger *slog.Logger) (protocol.Action, error) {
	factory, err := r.actions.resolve(key)
	if err != nil {
		return nil, err
	}

	err = validateConfig(models.CategoryAction, key, factory.Schema(), config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config, logger)
}

// Components lists every registered implementation ordered by category and type.
func (r *Registry) Components() []Component {
	components := make([]Component, 0)
	components = append(components, describe(models.CategoryTrigger, r.triggers)...)
	components = append(components, describe(models.CategoryCondition, r.conditions)...)
	components = append(components, describe(models.CategoryAction, r.actions)...)

	return components
}

// HealthCheck reports whether every category has at least one implementation.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.triggers.factories) == 0 {
		return "no triggers registered", false
	}

	if len(r.actions.factories) == 0 {
		return "no actions registered", false
	}

	if len(r.conditions.factories) == 0 {
		return "no conditions registered", false
	}

	return "ok", true
}

type catalog[F protocol.Factory] struct {
	category  models.Category
	factories map[string]F
}

func newCatalog[F protocol.Factory](category models.Category) *catalog[F] {
	return &catalog[F]{category: category, factories: make(map[string]F)}
}

func (c *catalog[F]) register(factory F) string {
	key := factory.ID()
	if key == "" {
		key = NormalizeName(factory)
	}

	c.factories[key] = factory

	return key
}

func (c *catalog[F]) resolve(key string) (F, error) {
	factory, ok := c.factories[key]
	if !ok {
		var zero F

		return zero, &models.ConfigurationError{
			Category: c.category,
			Key:      key,
			Known:    c.keys(),
		}
	}

	return factory, nil
}

func (c *catalog[F]) keys() []string {
	keys := make([]string, 0, len(c.factories))
	for k := range c.factories {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func (c *catalog[F]) snapshot() map[string]F {
	return maps.Clone(c.factories)
}

func describe[F protocol.Factory](category models.Category, c *catalog[F]) []Component {
	components := make([]Component, 0, len(c.factories))
	for _, key := range c.keys() {
		f := c.factories[key]
		components = append(components, Component{
			Category:    category,
			Type:        key,
			Name:        f.Name(),
			Description: f.Description(),
			Schema:      f.Schema(),
		})
	}

	return components
}

// NormalizeName derives a type key from the implementation's Go type name:
// the "Factory" suffix is dropped and the rest is converted to snake_case, so
// GreaterThanFactory becomes "greater_than".
func NormalizeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil {
		return ""
	}

	name := strings.TrimSuffix(t.Name(), "Factory")

	var b strings.Builder

	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}

			r = unicode.ToLower(r)
		}

		b.WriteRune(r)
	}

	return b.String()
}

func validateConfig(category models.Category, key string, schema map[string]any, config map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return &models.ConfigurationError{
			Category: category,
			Key:      key,
			Reason:   fmt.Sprintf("schema check failed: %v", err),
		}
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}

		return &models.ConfigurationError{
			Category: category,
			Key:      key,
			Reason:   strings.Join(problems, "; "),
		}
	}

	return nil
}
