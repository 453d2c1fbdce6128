package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/dukex/soarflow/pkg/persistence"
)

const (
	runsDir = "runs"
	logsDir = "logs"
)

func (fp *Persistence) CreateRun(_ context.Context, run *models.RunRecord) error {
	err := validID(run.ID)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	unlock := fp.lock(run.ID)
	defer unlock()

	_, err = os.Stat(fp.runPath(run.ID))
	if err == nil {
		return persistence.NewRunError("CreateRun", run.ID, persistence.ErrRunAlreadyExists)
	}

	err = fp.writeRun(run)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

func (fp *Persistence) FinishRun(_ context.Context, runID string, status models.RunStatus, finishedAt time.Time, duration float64) error {
	unlock := fp.lock(runID)
	defer unlock()

	run, err := fp.readRun(runID)
	if err != nil {
		return persistence.NewRunError("FinishRun", runID, err)
	}

	run.Status = status
	run.FinishedAt = &finishedAt
	run.Duration = duration

	err = fp.writeRun(run)
	if err != nil {
		return persistence.NewRunError("FinishRun", runID, err)
	}

	return nil
}

func (fp *Persistence) AddLog(_ context.Context, entry models.LogEntry) error {
	err := validID(entry.RunID)
	if err != nil {
		return persistence.NewRunError("AddLog", entry.RunID, err)
	}

	unlock := fp.lock(entry.RunID)
	defer unlock()

	_, err = os.Stat(fp.runPath(entry.RunID))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewRunError("AddLog", entry.RunID, persistence.ErrRunNotFound)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return persistence.NewRunError("AddLog", entry.RunID, fmt.Errorf("failed to marshal log entry: %w", err))
	}

	f, err := os.OpenFile(fp.logPath(entry.RunID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return persistence.NewRunError("AddLog", entry.RunID, fmt.Errorf("failed to open log file: %w", err))
	}

	_, err = f.Write(append(line, '\n'))
	if err != nil {
		_ = f.Close()

		return persistence.NewRunError("AddLog", entry.RunID, fmt.Errorf("failed to append log entry: %w", err))
	}

	err = f.Close()
	if err != nil {
		return persistence.NewRunError("AddLog", entry.RunID, fmt.Errorf("failed to close log file: %w", err))
	}

	return nil
}

func (fp *Persistence) FetchRuns(_ context.Context, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = persistence.DefaultRunLimit
	}

	files, err := fs.Glob(os.DirFS(filepath.Join(fp.root, runsDir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	runs := make([]*models.RunRecord, 0, len(files))
	for _, file := range files {
		run, err := fp.readRun(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", file, err)
		}

		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func (fp *Persistence) FetchRun(_ context.Context, runID string) (*models.RunRecord, error) {
	run, err := fp.readRun(runID)
	if err != nil {
		return nil, persistence.NewRunError("FetchRun", runID, err)
	}

	return run, nil
}

func (fp *Persistence) FetchLogs(_ context.Context, runID string) ([]models.LogEntry, error) {
	err := validID(runID)
	if err != nil {
		return nil, persistence.NewRunError("FetchLogs", runID, err)
	}

	entries := make([]models.LogEntry, 0)

	f, err := os.Open(fp.logPath(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}

	if err != nil {
		return nil, persistence.NewRunError("FetchLogs", runID, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var entry models.LogEntry

		// a line still being appended is skipped
		if json.Unmarshal(scanner.Bytes(), &entry) != nil {
			continue
		}

		entries = append(entries, entry)
	}

	err = scanner.Err()
	if err != nil {
		return nil, persistence.NewRunError("FetchLogs", runID, err)
	}

	return entries, nil
}

func (fp *Persistence) readRun(runID string) (*models.RunRecord, error) {
	err := validID(runID)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(fp.runPath(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.ErrRunNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", runID, err)
	}

	var run models.RunRecord

	err = json.Unmarshal(body, &run)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}

	return &run, nil
}

// writeRun replaces the run file atomically so readers never see a partial record.
func (fp *Persistence) writeRun(run *models.RunRecord) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}

	tmp, err := os.CreateTemp(filepath.Join(fp.root, runsDir), run.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return os.Rename(tmp.Name(), fp.runPath(run.ID))
}

func (fp *Persistence) runPath(runID string) string {
	return filepath.Join(fp.root, runsDir, runID+".json")
}

func (fp *Persistence) logPath(runID string) string {
	return filepath.Join(fp.root, logsDir, runID+".jsonl")
}

func validID(runID string) error {
	if runID == "" || strings.ContainsAny(runID, `/\.`) {
		return persistence.ErrRunNotFound
	}

	return nil
}
