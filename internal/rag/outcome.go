package rag

// Absence explains why a retrieval stage produced nothing.
type Absence string

const (
	// Present means the stage produced a value.
	Present Absence = ""
	// AbsenceDisabled means the stage is not configured.
	AbsenceDisabled Absence = "disabled"
	// AbsenceFailed means the collaborator returned an error.
	AbsenceFailed Absence = "failed"
	// AbsenceEmpty means the collaborator succeeded with no content.
	AbsenceEmpty Absence = "empty"
	// AbsenceOutOfRange means every retrieved position lacked a document.
	AbsenceOutOfRange Absence = "out_of_range"
)

// WebOutcome is the result of the web retrieval stage.
type WebOutcome struct {
	Summary string  `json:"-"`
	Absent  Absence `json:"absent,omitempty"`
	Err     error   `json:"-"`
}

// OK reports whether the stage produced a summary.
func (o WebOutcome) OK() bool { return o.Absent == Present }

// LocalOutcome is the result of the local retrieval stage. Documents are in rank order.
type LocalOutcome struct {
	Documents []string  `json:"-"`
	Distances []float32 `json:"distances,omitempty"`
	Dropped   int       `json:"dropped,omitempty"`
	Absent    Absence   `json:"absent,omitempty"`
	Err       error     `json:"-"`
}

// OK reports whether the stage produced documents.
func (o LocalOutcome) OK() bool { return o.Absent == Present }

// Outcome is the terminal state an Ask call reached.
type Outcome string

const (
	OutcomeRefusedEarly     Outcome = "refused_early"
	OutcomeAnswered         Outcome = "answered"
	OutcomeGenerationFailed Outcome = "generation_failed"
)
