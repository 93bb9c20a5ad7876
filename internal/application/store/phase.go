package store

// Phase is the lifecycle state of a Store
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseLoading
	PhaseReady
	PhaseSelected
	PhaseEditing
	PhaseSaving
	PhaseError
)

var phaseNames = [...]string{
	PhaseEmpty:    "empty",
	PhaseLoading:  "loading",
	PhaseReady:    "ready",
	PhaseSelected: "selected",
	PhaseEditing:  "editing",
	PhaseSaving:   "saving",
	PhaseError:    "error",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Busy reports whether a network operation is in flight
func (p Phase) Busy() bool {
	return p == PhaseLoading || p == PhaseSaving
}

// in reports whether p is one of phases
func (p Phase) in(phases ...Phase) bool {
	for _, q := range phases {
		if p == q {
			return true
		}
	}
	return false
}
