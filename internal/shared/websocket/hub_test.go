package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func waitCount(t *testing.T, hub *Hub, auctionID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ClientCount(context.Background(), auctionID) == want
	}, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatalf("client %s got nothing", c.ID)
		return nil
	}
}

func TestHub_BroadcastIsScopedToAuction(t *testing.T) {
	hub, _ := runHub(t)

	a1 := NewClient(hub, nil, "auction-1", "user-1")
	a2 := NewClient(hub, nil, "auction-1", "")
	b1 := NewClient(hub, nil, "auction-2", "user-2")
	for _, c := range []*Client{a1, a2, b1} {
		hub.RegisterClient(c)
	}
	waitCount(t, hub, "auction-1", 2)
	waitCount(t, hub, "auction-2", 1)

	hub.BroadcastToAuction("auction-1", []byte(`{"type":"server_auction_update"}`))
	require.JSONEq(t, `{"type":"server_auction_update"}`, string(receive(t, a1)))
	require.JSONEq(t, `{"type":"server_auction_update"}`, string(receive(t, a2)))

	select {
	case <-b1.Send:
		t.Fatal("other auctions must not receive the message")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	hub, _ := runHub(t)
	c := NewClient(hub, nil, "auction-1", "")
	hub.RegisterClient(c)
	waitCount(t, hub, "auction-1", 1)

	hub.UnregisterClient(c)
	waitCount(t, hub, "auction-1", 0)

	_, open := <-c.Send
	require.False(t, open, "send channel is closed on unregister")
	require.False(t, c.SendTo([]byte("late")), "sending to a closed client is a no-op")
}

func TestHub_LeaveRightAfterJoin(t *testing.T) {
	hub := NewHub()
	quick := NewClient(hub, nil, "auction-1", "")
	stays := NewClient(hub, nil, "auction-1", "")
	// both requests are queued before the hub runs, they must apply in order
	hub.RegisterClient(quick)
	hub.UnregisterClient(quick)
	hub.RegisterClient(stays)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	waitCount(t, hub, "auction-1", 1)
	select {
	case _, open := <-quick.Send:
		require.False(t, open, "the client that left is gone")
	case <-time.After(time.Second):
		t.Fatal("the client that left is still registered")
	}

	hub.BroadcastToAuction("auction-1", []byte(`{"type":"server_info"}`))
	require.JSONEq(t, `{"type":"server_info"}`, string(receive(t, stays)))
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel := runHub(t)
	c := NewClient(hub, nil, "auction-1", "")
	hub.RegisterClient(c)
	waitCount(t, hub, "auction-1", 1)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-c.Send:
			return !open
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	ctx, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	require.Zero(t, hub.ClientCount(ctx, "auction-1"), "count gives up once the hub is gone")
}

func TestClient_SendTo(t *testing.T) {
	c := NewClient(NewHub(), nil, "auction-1", "")
	for i := 0; i < cap(c.Send); i++ {
		require.True(t, c.SendTo([]byte("x")))
	}
	require.False(t, c.SendTo([]byte("overflow")), "full buffer drops the message")
}
