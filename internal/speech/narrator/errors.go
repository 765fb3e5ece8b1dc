package narrator

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a run failed in.
type Stage string

const (
	StageValidate Stage = "validate"
	StageSegment  Stage = "segment"
	StageFetch    Stage = "fetch"
	StageAssemble Stage = "assemble"
	StageCache    Stage = "cache"
	StageDeliver  Stage = "deliver"
)

// ErrNothingToSay is returned when segmentation leaves no fragments, e.g.
// for text made only of punctuation.
var ErrNothingToSay = errors.New("text contains nothing to synthesize")

// StageError is the terminal failure of a run.
type StageError struct {
	Stage    Stage
	Fragment int // 1-based, zero when not tied to a fragment
	Err      error
}

func (e *StageError) Error() string {
	if e.Fragment > 0 {
		return fmt.Sprintf("%s fragment %d: %v", e.Stage, e.Fragment, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, fragment int, err error) error {
	return &StageError{Stage: stage, Fragment: fragment, Err: err}
}
