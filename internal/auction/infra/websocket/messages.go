package websocket

import (
	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid              MessageType = "client_bid"               // client msg to make a bid
	MessageTypeServerAuctionUpdate    MessageType = "server_auction_update"    // server msg after an accepted bid
	MessageTypeServerAuctionFinalized MessageType = "server_auction_finalized" // server msg with the outcome
	MessageTypeServerError            MessageType = "server_error"             // server msg indicating error
	MessageTypeServerInfo             MessageType = "server_info"              // server msg with general info
	MessageTypeServerInitialState     MessageType = "server_initial_state"     // server msg with auction state on join
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is DTO for a bid message sended by the client.
// The bidder is the connection's user, never a field of the payload.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auction_id"`
		Amount    decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

// ServerAuctionUpdateMessage carries the auction state after a bid
type ServerAuctionUpdateMessage struct {
	BaseMessage
	Payload *application.AuctionStateDTO `json:"payload"`
}

// ServerAuctionFinalizedMessage carries the finalize result
type ServerAuctionFinalizedMessage struct {
	BaseMessage
	Payload *application.FinalizeResult `json:"payload"`
}

// ServerInitialStateMessage es el DTO para el estado inicial de la subasta enviado al cliente al conectarse.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload *application.AuctionStateDTO `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}

// ServerInfoMessage es el DTO para un mensaje de información general enviado por el servidor.
type ServerInfoMessage struct {
	BaseMessage
	Payload struct {
		Message string `json:"message"`
	} `json:"payload"`
}
