package luminara

import (
	"fmt"
	"strings"
)

// Stage is one step of the per-tick pipeline. Stages run in declaration order.
type Stage uint8

const (
	// Startup runs on the first pass only and is then retired.
	Startup Stage = iota
	PreUpdate
	Update
	FixedUpdate
	PostUpdate
	PreRender
	Render
	PostRender

	stageCount = int(PostRender) + 1
)

var stageNames = [stageCount]string{
	"Startup",
	"PreUpdate",
	"Update",
	"FixedUpdate",
	"PostUpdate",
	"PreRender",
	"Render",
	"PostRender",
}

// Stages returns every stage in execution order.
func Stages() []Stage {
	out := make([]Stage, stageCount)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

func (s Stage) valid() bool { return int(s) < stageCount }

func (s Stage) String() string {
	if !s.valid() {
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
	return stageNames[s]
}

// ParseStage maps a stage name, case-insensitively, back to its Stage.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if strings.EqualFold(n, name) {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// StageState is the lifecycle state of one stage within a run.
type StageState uint8

const (
	StagePending StageState = iota
	StageBatching
	StageExecuting
	StageDone
	StageRetired
)

func (s StageState) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageBatching:
		return "batching"
	case StageExecuting:
		return "executing"
	case StageDone:
		return "done"
	case StageRetired:
		return "retired"
	}
	return fmt.Sprintf("StageState(%d)", uint8(s))
}

// StageStatus is a snapshot of a stage's state. Batch is the index of the
// batch being executed and is only meaningful while State is StageExecuting.
type StageStatus struct {
	Stage Stage
	State StageState
	Batch int
	Tasks int
}
