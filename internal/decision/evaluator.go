package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// NetChange is the lamport return of selling held units at price:
// held * price * 1000 - launchCost - tip.
func NetChange(price float64, held, launchCost, tip uint64) float64 {
	return float64(held)*price*UnitScale - float64(launchCost) - float64(tip)
}

// Evaluator gates liquidation on a profit floor computed once at construction.
type Evaluator struct {
	costs Costs
	floor float64
}

// NewEvaluator creates an evaluator with floor = launch + minProfit + tip.
func NewEvaluator(costs Costs) *Evaluator {
	return &Evaluator{
		costs: costs,
		floor: float64(costs.LaunchCost) + float64(costs.MinProfit) + float64(costs.Tip),
	}
}

// Floor returns the minimum net change that triggers a sale.
func (e *Evaluator) Floor() float64 {
	return e.floor
}

// Evaluate produces a SellDecision for price and the held quantity.
// EXECUTE iff net >= 0 AND net >= floor; a non-finite price always skips.
func (e *Evaluator) Evaluate(price float64, held uint64) SellDecision {
	net := NetChange(price, held, e.costs.LaunchCost, e.costs.Tip)
	finite := !math.IsNaN(net) && !math.IsInf(net, 0)

	criteria := []CriterionResult{
		{
			Name:      "Non-negative return",
			Threshold: 0,
			Actual:    net,
			Pass:      finite && net >= 0,
		},
		{
			Name:      "Profit floor",
			Threshold: e.floor,
			Actual:    net,
			Pass:      finite && net >= e.floor,
		},
	}

	verdict := VerdictExecute
	for _, c := range criteria {
		if !c.Pass {
			verdict = VerdictSkip
			break
		}
	}

	return SellDecision{
		ID:        uuid.New(),
		Price:     price,
		Held:      held,
		NetChange: net,
		Floor:     e.floor,
		Verdict:   verdict,
		Criteria:  criteria,
	}
}

// Summary renders the decision checklist on one line for logs.
func (d SellDecision) Summary() string {
	var sb strings.Builder
	sb.WriteString(string(d.Verdict))
	for _, c := range d.Criteria {
		status := "PASS"
		if !c.Pass {
			status = "FAIL"
		}
		sb.WriteString(fmt.Sprintf(" [%s: %.0f >= %.0f %s]", c.Name, c.Actual, c.Threshold, status))
	}
	return sb.String()
}
