package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/cristianortiz/pigeonAuction/internal/shared/websocket"
	userdomain "github.com/cristianortiz/pigeonAuction/internal/user/domain"
	"github.com/gofiber/fiber/v2"
	fws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// localsUserID is where the upgrade middleware leaves the caller id
const localsUserID = "wsUserID"

// AuctionWSHandler handles the ws inbound msgs wich are specific for auction module (remember is a bounded context)
type AuctionWSHandler struct {
	auctionService application.AuctionService // application layer dependency
	users          userdomain.UserRepository
	hub            *websocket.Hub // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler
func NewAuctionWSHandler(auctionService application.AuctionService, users userdomain.UserRepository, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		users:          users,
		hub:            hub,
	}
}

// RegisterRoutes mounts GET /ws/auctions/:id
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, app fiber.Router) {
	app.Use("/ws", h.upgrade)
	app.Get("/ws/auctions/:id", fws.New(func(conn *fws.Conn) {
		h.serve(ctx, conn)
	}))
}

// upgrade only lets websocket handshakes through. The caller id is read from
// the header the auth gateway sets on the handshake, nothing the client sends
// itself is trusted. Connections without it are anonymous watchers.
func (h *AuctionWSHandler) upgrade(c *fiber.Ctx) error {
	if !fws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(localsUserID, c.Get("X-User-ID"))
	return c.Next()
}

// serve runs for the whole life of one connection
func (h *AuctionWSHandler) serve(ctx context.Context, conn *fws.Conn) {
	auctionID, initial, err := h.initialState(ctx, conn.Params("id"))
	if err != nil {
		writeDirect(conn, errorMessage(err.Error()))
		_ = conn.Close()
		return
	}

	userID, _ := conn.Locals(localsUserID).(string)
	client := websocket.NewClient(h.hub, conn, auctionID.String(), userID)
	// queued before registering so it is the first thing the client sees
	client.SendTo(initial)

	h.hub.RegisterClient(client)
	go client.WritePump(ctx)
	client.ReadPump(ctx) // blocks until the connection is gone
}

// initialState resolves the auction of a new connection and builds its
// server_initial_state frame. The error text is meant for the client.
func (h *AuctionWSHandler) initialState(ctx context.Context, idParam string) (uuid.UUID, []byte, error) {
	auctionID, err := uuid.Parse(idParam)
	if err != nil {
		return uuid.Nil, nil, errors.New("invalid auction id")
	}
	state, err := h.auctionService.GetAuctionState(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return uuid.Nil, nil, errors.New("auction not found")
		}
		log.Error("AuctionWSHandler: failed to load auction state",
			zap.String("auctionID", auctionID.String()),
			zap.Error(err))
		return uuid.Nil, nil, errors.New("failed to load auction")
	}
	data, err := json.Marshal(ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
		Payload:     state,
	})
	if err != nil {
		return uuid.Nil, nil, errors.New("failed to load auction")
	}
	return auctionID, data, nil
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMesssage dispatch the message by this type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	//adds more case for other types of messages
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format")
		return
	}

	//validates auction id
	if bidMsg.Payload.AuctionID.String() != client.AuctionID {
		h.sendErrorToClient(client, "auction ID mismatch")
		return
	}

	bidderID, err := uuid.Parse(client.UserID)
	if err != nil {
		h.sendErrorToClient(client, "authentication required to bid")
		return
	}
	user, err := h.users.GetByID(ctx, bidderID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			h.sendErrorToClient(client, "unknown user")
			return
		}
		log.Error("AuctionWSHandler: failed to load bidder", zap.String("userID", client.UserID), zap.Error(err))
		h.sendErrorToClient(client, "internal server error")
		return
	}
	if !user.CanBid() {
		h.sendErrorToClient(client, "only active users with a verified phone can bid")
		return
	}

	cmd := application.PlaceBidDTO{
		AuctionID: bidMsg.Payload.AuctionID,
		BidderID:  bidderID,
		Amount:    bidMsg.Payload.Amount,
	}
	bid, err := h.auctionService.PlaceBid(ctx, cmd)
	if err != nil {
		if domain.IsRejection(err) {
			h.sendErrorToClient(client, err.Error())
		} else {
			h.sendErrorToClient(client, "bid could not be recorded, try again")
		}
		return
	}

	// the update itself reaches every watcher through the publisher
	info := ServerInfoMessage{BaseMessage: BaseMessage{Type: MessageTypeServerInfo}}
	info.Payload.Message = "bid accepted: " + bid.Amount.StringFixed(2)
	if data, err := json.Marshal(info); err == nil {
		client.SendTo(data)
	}
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, errorMessage string) {
	data, err := json.Marshal(newServerError(errorMessage))
	if err != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(err))
		return
	}
	if !client.SendTo(data) {
		log.Warn("client send channel full or closed, could not send error msg")
	}
}

func newServerError(msg string) ServerErrorMessage {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{MessageTypeServerError},
	}
	errMsg.Payload.Error = msg
	return errMsg
}

func errorMessage(msg string) []byte {
	data, _ := json.Marshal(newServerError(msg))
	return data
}

// writeDirect is for the handshake phase, before the pumps own the connection
func writeDirect(conn *fws.Conn, data []byte) {
	if err := conn.WriteMessage(fws.TextMessage, data); err != nil {
		log.Debug("write to websocket failed", zap.Error(err))
	}
}
