package render

import (
	"github.com/lysyi3m/rss-reader/app/reader"
)

// FormView is what an input form shows for a given phase.
type FormView struct {
	SubmitEnabled bool `json:"submit_enabled"`
	InputEditable bool `json:"input_editable"`
	ClearInput    bool `json:"clear_input"`
	Flagged       bool `json:"flagged"`
}

func NewFormView(phase reader.FormPhase) FormView {
	return FormView{
		SubmitEnabled: phase == reader.PhaseValid,
		InputEditable: phase != reader.PhaseWaiting,
		ClearInput:    phase == reader.PhaseEmpty,
		Flagged:       phase == reader.PhaseInvalid,
	}
}
