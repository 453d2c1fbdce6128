package models

import (
	"maps"
	"sort"
)

// Seed is one event produced by a trigger; it becomes the Event of a fresh
// ExecutionContext.
type Seed map[string]any

// Conventional keys under which the structured fields of an ExecutionContext
// are exposed to field lookups.
const (
	KeyEnrichments   = "enrichments"
	KeyNotifications = "notifications"
	KeyTicket        = "ticket"
)

// Enrichment is threat-intel data attached to an event by an enrichment action.
type Enrichment struct {
	IP         string `json:"ip"`
	Reputation string `json:"reputation"`
	Geo        string `json:"geo"`
}

// Notification records a message queued by a notifying action.
type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
}

// Ticket is the incident ticket produced for an event. Only one ticket is kept
// per context; a later ticket action overwrites it.
type Ticket struct {
	ID       string `json:"id"`
	Priority string `json:"priority"`
	Summary  string `json:"summary"`
}

// ExecutionContext is the per-event data carrier threaded through the
// condition chain and the action chain of one playbook run.
type ExecutionContext struct {
	Event         map[string]any `json:"event"`
	Enrichments   []Enrichment   `json:"enrichments,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	Ticket        *Ticket        `json:"ticket,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// NewExecutionContext builds a fresh context for a trigger seed. The seed map is
// copied so that contexts never share top-level state.
func NewExecutionContext(seed Seed) *ExecutionContext {
	event := make(map[string]any, len(seed))
	maps.Copy(event, seed)

	return &ExecutionContext{
		Event:      event,
		Extensions: make(map[string]any),
	}
}

// Set stores action specific data in the extension map.
func (c *ExecutionContext) Set(key string, value any) {
	if c.Extensions == nil {
		c.Extensions = make(map[string]any)
	}

	c.Extensions[key] = value
}

// AsMap returns a read view of the context as nested maps: event fields first,
// then extensions, then the structured fields under their conventional keys.
func (c *ExecutionContext) AsMap() map[string]any {
	view := make(map[string]any, len(c.Event)+len(c.Extensions)+3)
	maps.Copy(view, c.Event)
	maps.Copy(view, c.Extensions)

	if len(c.Enrichments) > 0 {
		enrichments := make([]any, 0, len(c.Enrichments))
		for _, e := range c.Enrichments {
			enrichments = append(enrichments, map[string]any{
				"ip":         e.IP,
				"reputation": e.Reputation,
				"geo":        e.Geo,
			})
		}

		view[KeyEnrichments] = enrichments
	}

	if len(c.Notifications) > 0 {
		notifications := make([]any, 0, len(c.Notifications))
		for _, n := range c.Notifications {
			notifications = append(notifications, map[string]any{
				"recipient": n.Recipient,
				"subject":   n.Subject,
			})
		}

		view[KeyNotifications] = notifications
	}

	if c.Ticket != nil {
		view[KeyTicket] = map[string]any{
			"id":       c.Ticket.ID,
			"priority": c.Ticket.Priority,
			"summary":  c.Ticket.Summary,
		}
	}

	return view
}

// Keys returns the sorted top-level keys of AsMap.
func (c *ExecutionContext) Keys() []string {
	view := c.AsMap()

	keys := make([]string, 0, len(view))
	for k := range view {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
