// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/soarflow/pkg/actions/email"
	"github.com/dukex/soarflow/pkg/actions/enrichment"
	log_action "github.com/dukex/soarflow/pkg/actions/log"
	"github.com/dukex/soarflow/pkg/actions/ticket"
	"github.com/dukex/soarflow/pkg/conditions"
	"github.com/dukex/soarflow/pkg/registry"
	"github.com/dukex/soarflow/pkg/triggers/event"
	"github.com/dukex/soarflow/pkg/triggers/kafka"
	"github.com/dukex/soarflow/pkg/triggers/queue"
	"github.com/dukex/soarflow/pkg/triggers/schedule"
)

func registerNativeTriggers(reg *registry.Registry) {
	reg.RegisterTrigger(event.NewTriggerFactory())
	reg.RegisterTrigger(schedule.NewTriggerFactory())
	reg.RegisterTrigger(queue.NewTriggerFactory())
	reg.RegisterTrigger(kafka.NewTriggerFactory())
}

func registerNativeConditions(reg *registry.Registry) {
	for _, factory := range conditions.Factories() {
		reg.RegisterCondition(factory)
	}
}

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(ticket.NewActionFactory())
	reg.RegisterAction(email.NewActionFactory())
	reg.RegisterAction(enrichment.NewActionFactory())
	reg.RegisterAction(log_action.NewLogActionFactory())
}

// NewRegistry builds the process registry: built-in components first, then
// plugins, which may replace a built-in type. It must complete before any run
// starts.
func NewRegistry(log *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	registerNativeTriggers(reg)
	registerNativeConditions(reg)
	registerNativeActions(reg)

	err := reg.LoadPlugins(pluginsPath)
	if err != nil {
		return nil, err
	}

	return reg, nil
}
