package migration

import (
	"errors"
	"fmt"

	"github.com/temirov/pskmigrate/internal/cloudpath"
)

const (
	recordsFailedMessageConstant  = "one or more credentials were not migrated"
	recordsFailedTemplateConstant = "%w: %d of %d"
)

// ErrRecordsFailed indicates at least one record could not be migrated.
var ErrRecordsFailed = errors.New(recordsFailedMessageConstant)

// Stage names the step at which a record stopped.
type Stage string

// Record processing stages.
const (
	StageAuthenticate Stage = Stage("authenticate")
	StageSubmit       Stage = Stage("submit")
	StageCompleted    Stage = Stage("completed")
)

// RecordOutcome captures what happened to one record.
type RecordOutcome struct {
	MaskedSecret        string
	MigrationIdentifier string
	Stage               Stage
	Response            cloudpath.SubmissionResponse
	Error               error
}

// Succeeded reports whether the record was created.
func (outcome RecordOutcome) Succeeded() bool {
	return outcome.Error == nil && outcome.Stage == StageCompleted
}

// RunSummary aggregates the outcomes of one migration run.
type RunSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	Outcomes  []RecordOutcome
}

func (summary *RunSummary) record(outcome RecordOutcome) {
	summary.Attempted++
	if outcome.Succeeded() {
		summary.Succeeded++
	} else {
		summary.Failed++
	}
	summary.Outcomes = append(summary.Outcomes, outcome)
}

// Err returns an error wrapping ErrRecordsFailed when any record failed.
func (summary RunSummary) Err() error {
	if summary.Failed == 0 {
		return nil
	}
	return fmt.Errorf(recordsFailedTemplateConstant, ErrRecordsFailed, summary.Failed, summary.Attempted)
}

// Failures returns the outcomes of records that were not migrated.
func (summary RunSummary) Failures() []RecordOutcome {
	failures := make([]RecordOutcome, 0, summary.Failed)
	for _, outcome := range summary.Outcomes {
		if !outcome.Succeeded() {
			failures = append(failures, outcome)
		}
	}
	return failures
}
