package pipeline

import "fmt"

// StageError identifies where a run failed: the stage (or "setup") and the
// step inside it. The top-level handler logs it at ERROR and exits.
type StageError struct {
	Stage string
	Step  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Step, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage, step string, err error) error {
	return &StageError{Stage: stage, Step: step, Err: err}
}
