// Package file provides file-based persistence for playbook runs.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/soarflow/pkg/persistence"
)

// Persistence stores each run as runs/<id>.json and its log as
// logs/<id>.jsonl under the root directory. Writes to one run are serialized;
// reads take no locks.
type Persistence struct {
	root  string
	locks sync.Map // run id -> *sync.Mutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) (persistence.Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	for _, dir := range []string{runsDir, logsDir} {
		err := os.MkdirAll(filepath.Join(cleanRoot, dir), 0750)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &Persistence{root: cleanRoot}, nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) lock(runID string) func() {
	m, _ := fp.locks.LoadOrStore(runID, &sync.Mutex{})
	mu, _ := m.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}
