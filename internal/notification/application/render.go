package application

import (
	"fmt"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
)

// Render builds the subject and body of n for recipient
func Render(n *domain.Notification, recipient *domain.Recipient) domain.Message {
	p := n.Payload
	title := p["auction_title"]
	name := recipient.DisplayName
	if name == "" {
		name = recipient.Email
	}

	var subject, body string
	switch n.Kind {
	case domain.KindAuctionWon:
		subject = fmt.Sprintf("You won %q", title)
		body = fmt.Sprintf("Hi %s, your bid of %s won the auction %q. Sale reference: %s.",
			name, p["final_price"], title, p["sale_id"])
	case domain.KindAuctionSold:
		subject = fmt.Sprintf("%q was sold", title)
		body = fmt.Sprintf("Hi %s, your auction %q ended and was sold for %s. Sale reference: %s.",
			name, title, p["final_price"], p["sale_id"])
	case domain.KindReserveNotMet:
		subject = fmt.Sprintf("Reserve not met for %q", title)
		body = fmt.Sprintf("Hi %s, your auction %q ended. The highest bid was %s, below your reserve of %s, so the bird was not sold.",
			name, title, p["highest_bid"], p["reserve_price"])
	case domain.KindAuctionUnsold:
		subject = fmt.Sprintf("%q ended without bids", title)
		body = fmt.Sprintf("Hi %s, your auction %q ended without any bids.", name, title)
	default:
		subject = fmt.Sprintf("Update on %q", title)
		body = fmt.Sprintf("Hi %s, there is an update on auction %s.", name, p["auction_id"])
	}

	return domain.Message{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Kind:           n.Kind,
		To:             recipient.Email,
		Subject:        subject,
		Body:           body,
	}
}
