package domain

// QuotaState is the lifecycle state of a persisted quota.
//
// The only transition is issued → recycled. It is never reversed and never
// repeated.
type QuotaState string

const (
	// StateIssued is set at mint time.
	StateIssued QuotaState = "issued"

	// StateRecycled is terminal.
	StateRecycled QuotaState = "recycled"
)

// Valid reports whether s is a known state.
func (s QuotaState) Valid() bool {
	return s == StateIssued || s == StateRecycled
}

// CanTransition reports whether from → to is an allowed transition.
func CanTransition(from, to QuotaState) bool {
	return from == StateIssued && to == StateRecycled
}
