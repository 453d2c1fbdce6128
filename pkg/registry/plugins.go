package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/dukex/soarflow/pkg/protocol"
)

// LoadPlugins registers every component exported by the shared objects under
// pluginsPath. Plugins live in triggers/, conditions/ and actions/
// subdirectories and export a package level variable named Trigger, Condition
// or Action holding the factory.
func (r *Registry) LoadPlugins(pluginsPath string) error {
	if pluginsPath == "" {
		return nil
	}

	triggers, err := loadPlugin[protocol.TriggerFactory](r.logger, pluginsPath, "Trigger")
	if err != nil {
		return err
	}

	for _, f := range triggers {
		r.RegisterTrigger(f)
	}

	conditions, err := loadPlugin[protocol.ConditionFactory](r.logger, pluginsPath, "Condition")
	if err != nil {
		return err
	}

	for _, f := range conditions {
		r.RegisterCondition(f)
	}

	actions, err := loadPlugin[protocol.ActionFactory](r.logger, pluginsPath, "Action")
	if err != nil {
		return err
	}

	for _, f := range actions {
		r.RegisterAction(f)
	}

	return nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := filepath.Join(pluginsPath, strings.ToLower(symbolName)+"s")

	if _, err := os.Stat(rootPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(filepath.Join(rootPath, p))
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s does not export %s: %w", p, symbolName, err)
		}

		// Lookup returns a pointer to the exported variable.
		var factory T

		switch sym := v.(type) {
		case *T:
			factory = *sym
		case T:
			factory = sym
		default:
			return nil, fmt.Errorf("plugin %s: symbol %s has unexpected type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, factory)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
