package decision

import "github.com/google/uuid"

// Verdict is the outcome of evaluating one observed price.
type Verdict string

const (
	VerdictExecute Verdict = "EXECUTE"
	VerdictSkip    Verdict = "SKIP"
)

// UnitScale bridges raw token units times price to lamports.
const UnitScale = 1000.0

// Costs are the known, fixed costs of a position, in lamports.
type Costs struct {
	LaunchCost uint64
	MinProfit  uint64
	Tip        uint64
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold float64
	Actual    float64
	Pass      bool
}

// SellDecision is the verdict for one price observation, with its checklist.
type SellDecision struct {
	ID        uuid.UUID
	Price     float64
	Held      uint64
	NetChange float64
	Floor     float64
	Verdict   Verdict
	Criteria  []CriterionResult
}

// Execute reports whether the position should be liquidated.
func (d SellDecision) Execute() bool {
	return d.Verdict == VerdictExecute
}
