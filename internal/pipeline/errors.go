package pipeline

import (
	"fmt"
	"strings"
)

const (
	StageWorkflow   = "workflow"
	StageFetch      = "fetch"
	StageClassify   = "classify"
	StageMask       = "mask"
	StageAnalyze    = "analyze"
	StageResolve    = "resolve"
	StagePrompt     = "prompt"
	StageSynthesize = "synthesize"
	StageStore      = "store"
)

// ValidationError is a malformed or out-of-range request. No job exists and
// no credits were touched.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid generation request: " + strings.Join(e.Issues, "; ")
}

const ReasonConcurrencyLimit = "concurrency_limit"

// AdmissionDenied is a credit or concurrency rejection. Remaining is the
// tenant's included balance.
type AdmissionDenied struct {
	Reason    string
	Remaining int
	Active    int
}

func (e *AdmissionDenied) Error() string {
	if e.Reason == ReasonConcurrencyLimit {
		return fmt.Sprintf("admission denied: %d jobs already active", e.Active)
	}
	return fmt.Sprintf("admission denied: %s (remaining %d)", e.Reason, e.Remaining)
}

// StageError fails a job. It covers both inference and storage failures.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
