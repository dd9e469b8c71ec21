package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type captured struct {
	auctionID string
	data      []byte
}

type fakeBroadcaster struct{ sent []captured }

func (f *fakeBroadcaster) BroadcastToAuction(auctionID string, data []byte) {
	f.sent = append(f.sent, captured{auctionID: auctionID, data: data})
}

func TestHubPublisher(t *testing.T) {
	b := &fakeBroadcaster{}
	p := NewHubPublisher(b)
	id := uuid.New()

	p.AuctionUpdated(context.Background(), &application.AuctionStateDTO{
		AuctionID:    id,
		CurrentPrice: decimal.NewFromInt(200),
		Status:       domain.StatusActive,
	})
	price := decimal.NewFromInt(200)
	p.AuctionFinalized(context.Background(), &application.FinalizeResult{
		AuctionID:  id,
		Success:    true,
		Outcome:    domain.OutcomeSold,
		FinalPrice: &price,
		ReserveMet: true,
	})

	require.Len(t, b.sent, 2)
	for _, c := range b.sent {
		require.Equal(t, id.String(), c.auctionID)
	}

	var update ServerAuctionUpdateMessage
	require.NoError(t, json.Unmarshal(b.sent[0].data, &update))
	require.Equal(t, MessageTypeServerAuctionUpdate, update.Type)
	require.True(t, update.Payload.CurrentPrice.Equal(price))

	var final ServerAuctionFinalizedMessage
	require.NoError(t, json.Unmarshal(b.sent[1].data, &final))
	require.Equal(t, MessageTypeServerAuctionFinalized, final.Type)
	require.Equal(t, domain.OutcomeSold, final.Payload.Outcome)
	require.True(t, final.Payload.FinalPrice.Equal(price))
}
