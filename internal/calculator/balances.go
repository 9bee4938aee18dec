package calculator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// debtNoiseFloor drops debt edges and balances smaller than a cent.
var debtNoiseFloor = decimal.RequireFromString("0.01")

// TotalPaid sums the payments participantID made against billID.
func TotalPaid(payments []*models.Payment, billID, participantID string) float64 {
	return paidOf(payments, billID, participantID).InexactFloat64()
}

// SumPayments adds up the payment amounts in decimal, so 0.1 + 0.2 is 0.3.
func SumPayments(payments []*models.Payment) float64 {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(fromFloat(p.Amount))
	}
	return sum.InexactFloat64()
}

func paidOf(payments []*models.Payment, billID, participantID string) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		if p.BillID == billID && p.ParticipantID == participantID {
			paid = paid.Add(fromFloat(p.Amount))
		}
	}
	return paid
}

// Remaining returns share minus paid for participantID on bill. Positive means
// the participant still owes money; zero or negative means settled (negative
// is an overpayment).
func Remaining(bill *models.Bill, payments []*models.Payment, participantID string) float64 {
	return remainingOf(bill, payments, participantID).InexactFloat64()
}

// IsSettled reports whether participantID owes nothing more on bill.
func IsSettled(bill *models.Bill, payments []*models.Payment, participantID string) bool {
	return remainingOf(bill, payments, participantID).Sign() <= 0
}

func remainingOf(bill *models.Bill, payments []*models.Payment, participantID string) decimal.Decimal {
	if bill == nil {
		return decimal.Zero
	}
	return shareOf(bill, participantID).Sub(paidOf(payments, bill.ID, participantID))
}

// ParticipantStatus is one participant's settlement position on a bill.
type ParticipantStatus struct {
	ParticipantID string  `json:"participantId"`
	IsIncluded    bool    `json:"isIncluded"`
	IsPayer       bool    `json:"isPayer"`
	Share         float64 `json:"share"`
	Paid          float64 `json:"paid"`
	Remaining     float64 `json:"remaining"`
	Settled       bool    `json:"settled"`
}

// SettlementStatuses returns the position of every participant listed on the
// bill, in display order. Excluded participants with historical payments show
// up with a negative remainder.
func SettlementStatuses(bill *models.Bill, payments []*models.Payment) []ParticipantStatus {
	if bill == nil {
		return nil
	}
	out := make([]ParticipantStatus, len(bill.Participants))
	for i, p := range bill.Participants {
		share := shareOf(bill, p.ParticipantID)
		paid := paidOf(payments, bill.ID, p.ParticipantID)
		remaining := share.Sub(paid)
		out[i] = ParticipantStatus{
			ParticipantID: p.ParticipantID,
			IsIncluded:    p.IsIncluded,
			IsPayer:       p.ParticipantID == bill.PayerID,
			Share:         share.InexactFloat64(),
			Paid:          paid.InexactFloat64(),
			Remaining:     remaining.InexactFloat64(),
			Settled:       remaining.Sign() <= 0,
		}
	}
	return out
}

// Summary aggregates what one participant is owed and owes across active bills.
type Summary struct {
	// TotalToReceive is what others still owe on bills self paid for.
	TotalToReceive float64 `json:"totalToReceive"`
	// TotalToPay is what self still owes on bills someone else paid for.
	TotalToPay float64 `json:"totalToPay"`
	// Balance is TotalToReceive - TotalToPay.
	Balance float64 `json:"balance"`
}

// Summarize computes the Summary for selfID from scratch over bills and payments.
// Completed bills are ignored, and overpayments count as zero rather than
// offsetting other debts.
func Summarize(bills []*models.Bill, payments []*models.Payment, selfID string) Summary {
	byBill := indexPayments(payments)
	receive, pay := decimal.Zero, decimal.Zero

	for _, bill := range bills {
		if bill == nil || !bill.IsActive() {
			continue
		}
		billPayments := byBill[bill.ID]

		if bill.PayerID == selfID {
			for _, s := range bill.Included() {
				if s.ParticipantID == selfID {
					continue
				}
				receive = receive.Add(positive(remainingOf(bill, billPayments, s.ParticipantID)))
			}
			continue
		}

		if share := bill.Share(selfID); share != nil && share.IsIncluded {
			pay = pay.Add(positive(remainingOf(bill, billPayments, selfID)))
		}
	}

	return Summary{
		TotalToReceive: receive.InexactFloat64(),
		TotalToPay:     pay.InexactFloat64(),
		Balance:        receive.Sub(pay).InexactFloat64(),
	}
}

// MemberBalance is one participant's net position across a set of bills.
type MemberBalance struct {
	ParticipantID string  `json:"participantId"`
	NetBalance    float64 `json:"netBalance"` // Positive = is owed money, Negative = owes money
	TotalOwedToMe float64 `json:"totalOwedToMe"`
	TotalIOwe     float64 `json:"totalIOwe"`
}

// DebtEdge represents a debt from one participant to another.
type DebtEdge struct {
	From   string  `json:"from"` // Participant who owes
	To     string  `json:"to"`   // Participant who is owed
	Amount float64 `json:"amount"`
}

// GroupBalances nets the outstanding remainders of active bills into member
// balances and a simplified set of debts.
//
// Algorithm:
//   - For each active bill: every included non-payer owes their positive remainder to the payer
//   - Aggregate: net_balance = owed_to_me - i_owe
//   - Debt matrix: simplified using greedy matching of largest debtors and creditors
//
// Output is sorted so identical input always produces identical output.
func GroupBalances(bills []*models.Bill, payments []*models.Payment) ([]MemberBalance, []DebtEdge) {
	byBill := indexPayments(payments)

	type tally struct {
		owedToMe, iOwe decimal.Decimal
	}
	tallies := make(map[string]*tally)
	get := func(id string) *tally {
		t, ok := tallies[id]
		if !ok {
			t = &tally{owedToMe: decimal.Zero, iOwe: decimal.Zero}
			tallies[id] = t
		}
		return t
	}

	for _, bill := range bills {
		if bill == nil || !bill.IsActive() || bill.PayerID == "" {
			continue
		}
		billPayments := byBill[bill.ID]
		get(bill.PayerID)
		for _, s := range bill.Included() {
			if s.ParticipantID == bill.PayerID {
				continue
			}
			owed := positive(remainingOf(bill, billPayments, s.ParticipantID))
			get(s.ParticipantID).iOwe = get(s.ParticipantID).iOwe.Add(owed)
			get(bill.PayerID).owedToMe = get(bill.PayerID).owedToMe.Add(owed)
		}
	}

	type net struct {
		id     string
		amount decimal.Decimal
	}
	var (
		balances  []MemberBalance
		creditors []net
		debtors   []net
	)
	for id, t := range tallies {
		n := t.owedToMe.Sub(t.iOwe)
		balances = append(balances, MemberBalance{
			ParticipantID: id,
			NetBalance:    n.InexactFloat64(),
			TotalOwedToMe: t.owedToMe.InexactFloat64(),
			TotalIOwe:     t.iOwe.InexactFloat64(),
		})
		switch {
		case n.GreaterThanOrEqual(debtNoiseFloor):
			creditors = append(creditors, net{id, n})
		case n.Neg().GreaterThanOrEqual(debtNoiseFloor):
			debtors = append(debtors, net{id, n.Neg()})
		}
	}

	slices.SortFunc(balances, func(a, b MemberBalance) int {
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	byAmountDesc := func(a, b net) int {
		if c := b.amount.Cmp(a.amount); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	}
	slices.SortFunc(creditors, byAmountDesc)
	slices.SortFunc(debtors, byAmountDesc)

	// Greedy algorithm: match largest debts with largest credits
	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.GreaterThanOrEqual(debtNoiseFloor) {
			edges = append(edges, DebtEdge{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount.InexactFloat64(),
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.LessThan(debtNoiseFloor) {
			i++
		}
		if creditors[j].amount.LessThan(debtNoiseFloor) {
			j++
		}
	}

	return balances, edges
}

func indexPayments(payments []*models.Payment) map[string][]*models.Payment {
	byBill := make(map[string][]*models.Payment)
	for _, p := range payments {
		byBill[p.BillID] = append(byBill[p.BillID], p)
	}
	return byBill
}

func positive(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
