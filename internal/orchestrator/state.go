package orchestrator

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/autodev/internal/workspace"
)

// stateFile is the run ledger inside the workspace state directory. It is a
// diagnostic artifact: the loop never reads it back.
const stateFile = "state.yaml"

// runState is the persisted snapshot of one run.
type runState struct {
	RunID     string     `yaml:"run_id"`
	Task      string     `yaml:"task"`
	StartedAt time.Time  `yaml:"started_at"`
	Features  []*Feature `yaml:"features"`
}

func newRunState(task string, features []*Feature) *runState {
	return &runState{
		RunID:     uuid.NewString(),
		Task:      task,
		StartedAt: time.Now(),
		Features:  features,
	}
}

// saveState writes the current ledger to disk. Failures are logged and
// ignored; the ledger must never interfere with the run it describes.
func (o *Orchestrator) saveState() {
	if o.state == nil {
		return
	}
	data, err := yaml.Marshal(o.state)
	if err != nil {
		o.logger.WithError(err).Warn("state snapshot failed")
		return
	}
	if err := o.ws.WriteFile(filepath.Join(workspace.StateDir, stateFile), data); err != nil {
		o.logger.WithError(err).Warn("state snapshot failed")
	}
}
