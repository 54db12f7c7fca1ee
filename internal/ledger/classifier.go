package ledger

import "ravehub-payments-backend/internal/models"

// State is the display state derived for one installment from the full ledger.
type State string

const (
	StatePaid     State = "paid"
	StatePending  State = "pending-approval"
	StateActive   State = "active"
	StateFuture   State = "future"
	StateRejected State = "rejected"
)

// Settled reports whether an installment counts as fully paid: the payer's
// proof was approved by an admin, not merely uploaded.
func Settled(in models.Installment) bool {
	return in.Status == models.InstallmentPaid && in.AdminApproved
}

// NextDueIndex returns the index of the first installment in ledger order that
// is not settled, or -1 when every installment is settled. The ledger must be
// ordered by installment number ascending.
func NextDueIndex(ledger []models.Installment) int {
	for i := range ledger {
		if !Settled(ledger[i]) {
			return i
		}
	}
	return -1
}

// ClassifyAt derives the display state for ledger[i].
//
// The rule order matters: a rejected installment may still carry the proof URL
// from the submission that was turned down, so the pending check explicitly
// excludes rejected rows rather than trusting the presence of a proof alone.
func ClassifyAt(ledger []models.Installment, i int) State {
	in := ledger[i]
	switch {
	case Settled(in):
		return StatePaid
	case hasProof(in) && !in.AdminApproved && in.Status != models.InstallmentRejected:
		return StatePending
	case in.Status == models.InstallmentRejected:
		return StateRejected
	case i == NextDueIndex(ledger):
		return StateActive
	default:
		return StateFuture
	}
}

// Classify derives the display state of every installment in the ledger.
func Classify(ledger []models.Installment) []State {
	states := make([]State, len(ledger))
	next := NextDueIndex(ledger)
	for i, in := range ledger {
		switch {
		case Settled(in):
			states[i] = StatePaid
		case hasProof(in) && !in.AdminApproved && in.Status != models.InstallmentRejected:
			states[i] = StatePending
		case in.Status == models.InstallmentRejected:
			states[i] = StateRejected
		case i == next:
			states[i] = StateActive
		default:
			states[i] = StateFuture
		}
	}
	return states
}

// Payable reports whether the payer may submit a proof of payment for
// ledger[i]: only the active installment or a rejected one.
func Payable(ledger []models.Installment, i int) bool {
	s := ClassifyAt(ledger, i)
	return s == StateActive || s == StateRejected
}

// AllPaid reports whether every installment in the ledger is settled.
// This is the ticket-delivery gate.
func AllPaid(ledger []models.Installment) bool {
	if len(ledger) == 0 {
		return false
	}
	return NextDueIndex(ledger) == -1
}

// Progress returns how many installments are settled out of the total.
func Progress(ledger []models.Installment) (paid, total int) {
	for _, in := range ledger {
		if Settled(in) {
			paid++
		}
	}
	return paid, len(ledger)
}

func hasProof(in models.Installment) bool {
	return in.ProofURL != nil && *in.ProofURL != ""
}
