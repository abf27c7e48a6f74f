package domain

// Phase is the checkout orchestrator state.
type Phase string

const (
	PhaseLoading     Phase = "LOADING"
	PhaseReady       Phase = "READY"
	PhaseValidating  Phase = "VALIDATING"
	PhaseSavingDraft Phase = "SAVING_DRAFT"
	PhaseCheckingOut Phase = "CHECKING_OUT"
	PhaseCompleted   Phase = "COMPLETED"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseLoading:     {PhaseReady},
	PhaseReady:       {PhaseValidating},
	PhaseValidating:  {PhaseReady, PhaseSavingDraft, PhaseCheckingOut},
	PhaseSavingDraft: {PhaseReady, PhaseCompleted},
	PhaseCheckingOut: {PhaseReady, PhaseCompleted},
	PhaseCompleted:   {PhaseLoading},
}

// CanTransitionTo reports whether the machine may move from one phase to another.
func CanTransitionTo(from, to Phase) bool {
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted
}

// String representation (for logging)
func (p Phase) String() string {
	return string(p)
}
