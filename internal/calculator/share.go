// Package calculator holds the pure settlement math: per-participant shares,
// payment totals, remaining balances and aggregate summaries.
//
// Every function here works on an in-memory snapshot and never fails:
// degenerate input (no included participants, zero weights, missing values)
// yields zero rather than an error.
package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

var hundred = decimal.NewFromInt(100)

// allocationTolerance is how far fixed amounts or percentages may drift from
// their target before a bill is flagged as unbalanced.
var allocationTolerance = decimal.RequireFromString("0.01")

// ParticipantAmount pairs a participant with a computed amount.
type ParticipantAmount struct {
	ParticipantID string  `json:"participantId"`
	Amount        float64 `json:"amount"`
}

// CalculateParticipantShare returns how much participantID owes on bill under
// the bill's division method. Participants that are absent or excluded owe 0.
//
//	equal:      total / included
//	fixed:      the participant's amount
//	percentage: total * percentage / 100
//	weight:     total * weight / sum(included weights), 0 when the sum is 0
func CalculateParticipantShare(bill *models.Bill, participantID string) float64 {
	return shareOf(bill, participantID).InexactFloat64()
}

// Shares returns the share of every participant listed on the bill, in display order.
func Shares(bill *models.Bill) []ParticipantAmount {
	if bill == nil {
		return nil
	}
	out := make([]ParticipantAmount, len(bill.Participants))
	for i, p := range bill.Participants {
		out[i] = ParticipantAmount{
			ParticipantID: p.ParticipantID,
			Amount:        CalculateParticipantShare(bill, p.ParticipantID),
		}
	}
	return out
}

// shareOf returns the share at the precision callers receive it: the exact
// quotient is narrowed to the nearest float64 and read back, so a payment of
// CalculateParticipantShare's result cancels it to exactly zero.
func shareOf(bill *models.Bill, participantID string) decimal.Decimal {
	exact := exactShareOf(bill, participantID)
	return decimal.NewFromFloat(exact.InexactFloat64())
}

func exactShareOf(bill *models.Bill, participantID string) decimal.Decimal {
	if bill == nil {
		return decimal.Zero
	}
	share := bill.Share(participantID)
	if share == nil || !share.IsIncluded {
		return decimal.Zero
	}
	total := fromFloat(bill.TotalAmount)

	switch bill.DivisionMethod {
	case models.DivisionEqual:
		n := len(bill.Included())
		if n == 0 {
			return decimal.Zero
		}
		return total.Div(decimal.NewFromInt(int64(n)))

	case models.DivisionFixed:
		return fromPtr(share.Amount)

	case models.DivisionPercentage:
		return total.Mul(fromPtr(share.Percentage)).Div(hundred)

	case models.DivisionWeight:
		totalWeight := decimal.Zero
		for _, s := range bill.Included() {
			totalWeight = totalWeight.Add(fromPtr(s.Weight))
		}
		if totalWeight.IsZero() {
			return decimal.Zero
		}
		return total.Mul(fromPtr(share.Weight)).Div(totalWeight)
	}
	return decimal.Zero
}

// Allocation describes how well a fixed or percentage bill's shares add up.
type Allocation struct {
	Method models.DivisionMethod `json:"method"`
	// Expected is the bill total for fixed bills and 100 for percentage bills.
	Expected float64 `json:"expected"`
	// Allocated is the sum over included participants.
	Allocated  float64 `json:"allocated"`
	Difference float64 `json:"difference"`
	Balanced   bool    `json:"balanced"`
}

// CheckAllocation reports whether fixed amounts sum to the total, or
// percentages to 100. Mismatches are accepted by the engine; this only flags them.
// Equal and weight bills always allocate the whole total and are balanced.
func CheckAllocation(bill *models.Bill) Allocation {
	a := Allocation{Balanced: true}
	if bill == nil {
		return a
	}
	a.Method = bill.DivisionMethod

	var expected, allocated decimal.Decimal
	switch bill.DivisionMethod {
	case models.DivisionFixed:
		expected = fromFloat(bill.TotalAmount)
		for _, s := range bill.Included() {
			allocated = allocated.Add(fromPtr(s.Amount))
		}
	case models.DivisionPercentage:
		expected = hundred
		for _, s := range bill.Included() {
			allocated = allocated.Add(fromPtr(s.Percentage))
		}
	default:
		total := bill.TotalAmount
		a.Expected, a.Allocated = total, total
		return a
	}

	diff := expected.Sub(allocated)
	a.Expected = expected.InexactFloat64()
	a.Allocated = allocated.InexactFloat64()
	a.Difference = diff.InexactFloat64()
	a.Balanced = diff.Abs().LessThanOrEqual(allocationTolerance)
	return a
}

// fromFloat converts f to a decimal, treating NaN and infinities as zero.
func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func fromPtr(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return fromFloat(*f)
}
