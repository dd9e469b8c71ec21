package application

import (
	"testing"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	payload := map[string]string{
		"auction_id":    "a-1",
		"auction_title": "Janssen hen",
		"final_price":   "600.00",
		"sale_id":       "s-1",
		"highest_bid":   "450.00",
		"reserve_price": "500.00",
	}
	tests := []struct {
		kind        domain.Kind
		wantSubject string
		wantBody    []string
	}{
		{domain.KindAuctionWon, `You won "Janssen hen"`, []string{"600.00", "s-1"}},
		{domain.KindAuctionSold, `"Janssen hen" was sold`, []string{"600.00"}},
		{domain.KindReserveNotMet, `Reserve not met for "Janssen hen"`, []string{"450.00", "500.00"}},
		{domain.KindAuctionUnsold, `"Janssen hen" ended without bids`, []string{"without any bids"}},
		{domain.Kind("other"), `Update on "Janssen hen"`, []string{"a-1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			n := domain.New(uuid.New(), tt.kind, payload, time.Now())
			msg := Render(n, &domain.Recipient{Email: "bob@example.com"})
			require.Equal(t, tt.wantSubject, msg.Subject)
			require.Equal(t, "bob@example.com", msg.To)
			require.Contains(t, msg.Body, "Hi bob@example.com", "falls back to the email")
			for _, s := range tt.wantBody {
				require.Contains(t, msg.Body, s)
			}
		})
	}
}
