package websocket

import (
	"context"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Constants for WebSocket configuration (adjust as needed)
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Hub keeps client's registry and handle messages broadcasting
type Hub struct {
	// Registered clients, grouped by auction ID.
	// The inner map keys are clients, and the boolean value is ignored.
	clients map[string]map[*Client]bool
	// Inbound messages from the clien
	broadcast chan *Message
	// Register and unregister requests share one queue, so a client that
	// leaves right after joining is never processed out of order
	lifecycle       chan lifecycleEvent
	InboundMessages chan *ClientMessage // this channel will be listened to by module-specific handlers (e.g, auction handler)
	counts          chan countRequest
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The auction ID this client is connected to.
	AuctionID string
	// Authenticated user behind the connection, empty for anonymous watchers
	UserID string
	// Unique identifier for the client
	ID string
}

type Message struct {
	AuctionID string
	Data      []byte
}

// ClientMessage is used for wraping the client and data message received.
// is used to send inbound messages from the client to the hub handlers
type ClientMessage struct {
	Client *Client
	Data   []byte
}

// NewHub creates a hub with buffered channels
func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, 256),
		lifecycle:       make(chan lifecycleEvent, 128),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, 256),
		counts:          make(chan countRequest),
	}
}

// NewClient builds a client with its outbound buffer
func NewClient(hub *Hub, conn *websocket.Conn, auctionID, userID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 32),
		AuctionID: auctionID,
		UserID:    userID,
		ID:        uuid.NewString(),
	}
}

type countRequest struct {
	auctionID string
	reply     chan int
}

// ClientCount returns how many clients watch an auction, it needs Run to be running
func (h *Hub) ClientCount(ctx context.Context, auctionID string) int {
	req := countRequest{auctionID: auctionID, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
	case <-ctx.Done():
		return 0
	}
	select {
	case n := <-req.reply:
		return n
	case <-ctx.Done():
		return 0
	}
}

func remoteAddr(c *Client) string {
	if c.Conn == nil || c.Conn.Conn == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}

func (h *Hub) totalClients() int {
	count := 0
	for _, auctionClients := range h.clients {
		count += len(auctionClients)
	}
	return count
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocker Hub started")
	for {
		select {
		case <-ctx.Done(): // <-- Check context cancellation
			log.Info("WebSocket Hub shutting down due to context cancellation")
			for _, auctionClients := range h.clients {
				for client := range auctionClients {
					close(client.Send)
				}
			}
			h.clients = map[string]map[*Client]bool{}
			return // Exit the goroutine
		case req := <-h.counts:
			req.reply <- len(h.clients[req.auctionID])
		case ev := <-h.lifecycle:
			if ev.join {
				h.add(ev.client)
			} else {
				h.remove(ev.client)
			}

		case message := <-h.broadcast:
			//broadcast the message to all the clients in the auction group
			if clients, ok := h.clients[message.AuctionID]; ok {
				log.Debug("Broadcasting message to auction", zap.String("auctionID", message.AuctionID), zap.Int("clients", len(clients)))
				for client := range clients {
					select {
					case client.Send <- message.Data:
						// message sended
					default:
						//message could not be sent, client probably disconneted, closing channel
						close(client.Send)
						//deleting client form client's map
						delete(clients, client)
						log.Warn("Failed to Send message to client, unregistering", client.fields()...)
					}
				}
			}
		}
	}
}

type lifecycleEvent struct {
	client *Client
	join   bool
}

func (h *Hub) add(client *Client) {
	// Register the client in its auction group
	if _, ok := h.clients[client.AuctionID]; !ok {
		h.clients[client.AuctionID] = make(map[*Client]bool)
	}
	h.clients[client.AuctionID][client] = true
	log.Info("Client registered", client.fields(zap.Int("total_clients", h.totalClients()))...)
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.AuctionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		// never registered or already dropped by a broadcast
		return
	}
	delete(clients, client)
	close(client.Send)
	log.Info("Client unregistered", client.fields(zap.Int("total_clients", h.totalClients()))...)
	// Si no quedan clientes en este grupo, elimina el mapa
	if len(clients) == 0 {
		delete(h.clients, client.AuctionID)
		log.Info("Auction group removed as empty", zap.String("auctionID", client.AuctionID))
	}
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.lifecycle <- lifecycleEvent{client: client, join: true}:
		log.Debug("Client queued for registration", client.fields()...)
	default:
		log.Error("Lifecycle channel is full, client registration failed", client.fields()...)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.lifecycle <- lifecycleEvent{client: client}:
		log.Debug("Client queued for unregistration", client.fields()...)
	default:
		// the hub is saturated or gone, the connection is closing anyway
		log.Error("Lifecycle channel is full, client unregistration failed", client.fields()...)
	}
}

// BroadcastToAuction envía un mensaje a todos los clientes suscritos a una subasta.
func (h *Hub) BroadcastToAuction(auctionID string, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("auctionID", auctionID))
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("auctionID", auctionID))
	}
}

// SendTo queues data for one client only, dropping it when the buffer is full
func (c *Client) SendTo(data []byte) bool {
	defer func() {
		// Send may already be closed by the hub
		_ = recover()
	}()
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) fields(extra ...zap.Field) []zap.Field {
	f := []zap.Field{
		zap.String("clientID", c.ID),
		zap.String("auctionID", c.AuctionID),
		zap.String("userID", c.UserID),
		zap.String("remote_addr", remoteAddr(c)),
	}
	return append(f, extra...)
}

// ReadPump forwards every frame of the client to Hub.InboundMessages until the
// peer goes away or ctx ends. Run it in its own goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	done := make(chan struct{})
	defer func() {
		close(done)
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
		log.Info("ReadPump stopped for client", c.fields()...)
	}()
	// ReadMessage blocks, closing the conn is the only way to stop it on shutdown
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Conn.Close()
		case <-done:
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	log.Info("ReadPump started for client", c.fields()...)

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error", c.fields(zap.Error(err))...)
			} else {
				log.Info("WebSocket connection closed by peer", c.fields(zap.Error(err))...)
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: data}:
		case <-ctx.Done():
			return
		default:
			// handlers are not keeping up, a bid dropped here is simply not placed
			log.Error("Hub InboundMessages channel is full, dropping message",
				c.fields(zap.Int("bytes", len(data)))...)
		}
	}
}

// WritePump is the single writer of the connection: queued messages, pings and
// the final close frame all go through it. Every message is its own text frame,
// clients parse one JSON document per frame.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
		log.Info("WritePump stopped for client", c.fields()...)
	}()
	log.Info("WritePump started for client", c.fields()...)

	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			if err := c.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
				log.Warn("Failed to send close control message", c.fields(zap.Error(err))...)
			}
			return

		case data, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub dropped this client
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error("Failed to write message to client", c.fields(zap.Error(err))...)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error("Failed to write ping message to client", c.fields(zap.Error(err))...)
				return
			}
		}
	}
}
