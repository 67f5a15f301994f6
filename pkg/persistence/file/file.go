// Package file provides file-based persistence for query runs. Each run is
// stored as one JSON document named by task id.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/askdb/askdb/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file store rooted at the given directory. A
// file:// prefix is accepted and stripped.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	err := os.MkdirAll(filepath.Join(cleanRoot, "runs"), 0o755)
	if err != nil {
		return nil, &persistence.RunError{Op: "init", Err: err}
	}

	return &Persistence{root: cleanRoot}, nil
}

func (p *Persistence) SaveRun(_ context.Context, record *persistence.RunRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &persistence.RunError{Op: "save_run", TaskID: record.TaskID, Err: err}
	}

	err = os.WriteFile(p.runPath(record.TaskID), data, 0o644)
	if err != nil {
		return &persistence.RunError{Op: "save_run", TaskID: record.TaskID, Err: err}
	}

	return nil
}

func (p *Persistence) RunByTaskID(_ context.Context, taskID string) (*persistence.RunRecord, error) {
	data, err := os.ReadFile(p.runPath(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, &persistence.RunError{Op: "run_by_task_id", TaskID: taskID, Err: err}
	}

	var record persistence.RunRecord

	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, &persistence.RunError{Op: "run_by_task_id", TaskID: taskID, Err: err}
	}

	return &record, nil
}

func (p *Persistence) RunsByUser(ctx context.Context, userID int64, limit int) ([]*persistence.RunRecord, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, "runs"))
	if err != nil {
		return nil, &persistence.RunError{Op: "runs_by_user", Err: err}
	}

	records := make([]*persistence.RunRecord, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		record, err := p.RunByTaskID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		if record.UserID == userID {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CompletedAt.After(records[j].CompletedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) runPath(taskID string) string {
	return filepath.Join(p.root, "runs", fmt.Sprintf("%s.json", taskID))
}

var _ persistence.Persistence = (*Persistence)(nil)
