package websocket

import (
	"context"
	"encoding/json"

	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/cristianortiz/pigeonAuction/internal/shared/websocket"
	"go.uber.org/zap"
)

// Broadcaster is the part of the shared hub the publisher needs
type Broadcaster interface {
	BroadcastToAuction(auctionID string, data []byte)
}

// HubPublisher implements application.UpdatePublisher on top of the hub
type HubPublisher struct {
	hub Broadcaster
}

func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) AuctionUpdated(_ context.Context, state *application.AuctionStateDTO) {
	msg := ServerAuctionUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerAuctionUpdate},
		Payload:     state,
	}
	p.broadcast(state.AuctionID.String(), msg)
}

func (p *HubPublisher) AuctionFinalized(_ context.Context, result *application.FinalizeResult) {
	msg := ServerAuctionFinalizedMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerAuctionFinalized},
		Payload:     result,
	}
	p.broadcast(result.AuctionID.String(), msg)
}

func (p *HubPublisher) broadcast(auctionID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("HubPublisher: failed to marshal message",
			zap.String("auctionID", auctionID),
			zap.Error(err))
		return
	}
	p.hub.BroadcastToAuction(auctionID, data)
}

var (
	_ application.UpdatePublisher = (*HubPublisher)(nil)
	_ Broadcaster                 = (*websocket.Hub)(nil)
)
