package planner

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/specloom/specloom/internal/taskqueue"
)

// State is the on-disk record of task progress, so a restart can restore
// statuses after the initial decomposition repopulates the queue.
type State struct {
	Version int                   `toml:"version"`
	Project string                `toml:"project"`
	SavedAt time.Time             `toml:"saved_at"`
	Tasks   map[string]*TaskState `toml:"tasks"`
}

// TaskState is the persisted slice of one task.
type TaskState struct {
	Status    string    `toml:"status"`
	FeatureID string    `toml:"feature_id"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// LoadState reads a state file. A missing file yields an empty state.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Version: 1, Tasks: make(map[string]*TaskState)}, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := toml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	if state.Tasks == nil {
		state.Tasks = make(map[string]*TaskState)
	}
	return &state, nil
}

// SaveState writes the planner's current task statuses atomically
// (write temp + rename).
func (p *Planner) SaveState(path, project string) error {
	state := &State{
		Version: 1,
		Project: project,
		SavedAt: time.Now(),
		Tasks:   make(map[string]*TaskState),
	}
	for _, t := range p.queue.Tasks() {
		state.Tasks[t.ID] = &TaskState{
			Status:    string(t.Status),
			FeatureID: t.FeatureID,
			UpdatedAt: state.SavedAt,
		}
	}

	data, err := toml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming state file: %w", err)
	}
	return nil
}

// RestoreState applies persisted statuses to tasks the current plan still
// contains. Entries for task IDs the decomposition no longer produces are
// dropped silently: the feature changed shape since the save.
func (p *Planner) RestoreState(state *State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, ts := range state.Tasks {
		status := taskqueue.Status(ts.Status)
		if status == taskqueue.StatusPending {
			continue // freshly inserted tasks are already pending
		}
		if !p.queue.Contains(id) {
			continue
		}
		if err := p.queue.SetStatus(id, status); err != nil {
			p.logger.Warn("status restore failed", "task", id, "error", err)
		}
	}
}
