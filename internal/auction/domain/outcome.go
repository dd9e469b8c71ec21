package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is the sold/unsold decision of a finalized auction
type Outcome string

const (
	OutcomeSold          Outcome = "SOLD"
	OutcomeReserveNotMet Outcome = "RESERVE_NOT_MET"
	OutcomeNoBids        Outcome = "NO_BIDS"
	// OutcomeNotActive is reported when finalize found nothing to do
	OutcomeNotActive Outcome = "NOT_ACTIVE"
)

// Decision is the deterministic result of DecideOutcome, computed only from the
// auction reserve and its highest bid so a retried finalize reaches the same result.
type Decision struct {
	Outcome    Outcome
	ReserveMet bool
	WinningBid *Bid
	// HighestAmount is set whenever a bid exists, even when the reserve was not met
	HighestAmount *decimal.Decimal
}

// WinnerID returns the buyer when the auction was sold
func (d Decision) WinnerID() *uuid.UUID {
	if d.Outcome != OutcomeSold || d.WinningBid == nil {
		return nil
	}
	id := d.WinningBid.BidderID
	return &id
}

// FinalPrice returns the sale price when the auction was sold
func (d Decision) FinalPrice() *decimal.Decimal {
	if d.Outcome != OutcomeSold || d.WinningBid == nil {
		return nil
	}
	p := d.WinningBid.Amount
	return &p
}

// DecideOutcome applies the reserve price rules to the highest bid.
// Without a reserve any bid sells the bird.
func DecideOutcome(a *Auction, highest *Bid) Decision {
	if highest == nil {
		return Decision{Outcome: OutcomeNoBids}
	}
	amount := highest.Amount
	reserveMet := true
	if a.HasReserve() {
		reserveMet = highest.Amount.GreaterThanOrEqual(*a.ReservePrice)
	}
	if !reserveMet {
		return Decision{Outcome: OutcomeReserveNotMet, HighestAmount: &amount}
	}
	return Decision{
		Outcome:       OutcomeSold,
		ReserveMet:    true,
		WinningBid:    highest,
		HighestAmount: &amount,
	}
}
