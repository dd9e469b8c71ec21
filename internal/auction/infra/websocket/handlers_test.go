package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/cristianortiz/pigeonAuction/internal/auction/application/mock"
	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	sharedws "github.com/cristianortiz/pigeonAuction/internal/shared/websocket"
	userdomain "github.com/cristianortiz/pigeonAuction/internal/user/domain"
	usermock "github.com/cristianortiz/pigeonAuction/internal/user/domain/mock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func bidFrame(auctionID uuid.UUID, amount string) []byte {
	msg := ClientBidMessage{BaseMessage: BaseMessage{Type: MessageTypeClientBid}}
	msg.Payload.AuctionID = auctionID
	msg.Payload.Amount = decimal.RequireFromString(amount)
	data, _ := json.Marshal(msg)
	return data
}

// nextFrame reads what the handler queued for the client, decoded by type
func nextFrame(t *testing.T, c *sharedws.Client) (MessageType, string) {
	t.Helper()
	select {
	case data := <-c.Send:
		var base BaseMessage
		require.NoError(t, json.Unmarshal(data, &base))
		switch base.Type {
		case MessageTypeServerError:
			var m ServerErrorMessage
			require.NoError(t, json.Unmarshal(data, &m))
			return base.Type, m.Payload.Error
		case MessageTypeServerInfo:
			var m ServerInfoMessage
			require.NoError(t, json.Unmarshal(data, &m))
			return base.Type, m.Payload.Message
		}
		return base.Type, string(data)
	case <-time.After(time.Second):
		t.Fatal("no frame queued for the client")
		return "", ""
	}
}

func TestProcessMessage_ClientBid(t *testing.T) {
	auctionID := uuid.New()
	bidder := userdomain.User{ID: uuid.New(), Active: true, PhoneVerified: true}
	unverified := userdomain.User{ID: uuid.New(), Active: true}

	tests := []struct {
		name     string
		userID   string
		frame    []byte
		setup    func(svc *mock.MockAuctionService, users *usermock.MockUserRepository)
		wantType MessageType
		wantText string
	}{
		{
			name:     "malformed frame",
			userID:   bidder.ID.String(),
			frame:    []byte(`{not json`),
			wantType: MessageTypeServerError,
			wantText: "invalid message format",
		},
		{
			name:     "unknown message type",
			userID:   bidder.ID.String(),
			frame:    []byte(`{"type":"client_chat"}`),
			wantType: MessageTypeServerError,
			wantText: "unknown message type",
		},
		{
			name:     "bid for another auction",
			userID:   bidder.ID.String(),
			frame:    bidFrame(uuid.New(), "200"),
			wantType: MessageTypeServerError,
			wantText: "auction ID mismatch",
		},
		{
			name:     "anonymous watcher",
			userID:   "",
			frame:    bidFrame(auctionID, "200"),
			wantType: MessageTypeServerError,
			wantText: "authentication required to bid",
		},
		{
			name:   "unknown bidder",
			userID: uuid.NewString(),
			frame:  bidFrame(auctionID, "200"),
			setup: func(_ *mock.MockAuctionService, users *usermock.MockUserRepository) {
				users.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, userdomain.ErrUserNotFound)
			},
			wantType: MessageTypeServerError,
			wantText: "unknown user",
		},
		{
			name:   "user lookup fails",
			userID: bidder.ID.String(),
			frame:  bidFrame(auctionID, "200"),
			setup: func(_ *mock.MockAuctionService, users *usermock.MockUserRepository) {
				users.EXPECT().GetByID(gomock.Any(), bidder.ID).Return(nil, errors.New("conn refused"))
			},
			wantType: MessageTypeServerError,
			wantText: "internal server error",
		},
		{
			name:   "unverified bidder",
			userID: unverified.ID.String(),
			frame:  bidFrame(auctionID, "200"),
			setup: func(_ *mock.MockAuctionService, users *usermock.MockUserRepository) {
				users.EXPECT().GetByID(gomock.Any(), unverified.ID).Return(&unverified, nil)
			},
			wantType: MessageTypeServerError,
			wantText: "only active users with a verified phone can bid",
		},
		{
			name:   "rejection reason reaches the client",
			userID: bidder.ID.String(),
			frame:  bidFrame(auctionID, "140"),
			setup: func(svc *mock.MockAuctionService, users *usermock.MockUserRepository) {
				users.EXPECT().GetByID(gomock.Any(), bidder.ID).Return(&bidder, nil)
				svc.EXPECT().PlaceBid(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: amount must exceed current price 150.00", domain.ErrBidTooLow))
			},
			wantType: MessageTypeServerError,
			wantText: "bid amount is too low: amount must exceed current price 150.00",
		},
		{
			name:   "persistence failure stays generic",
			userID: bidder.ID.String(),
			frame:  bidFrame(auctionID, "200"),
			setup: func(svc *mock.MockAuctionService, users *usermock.MockUserRepository) {
				users.EXPECT().GetByID(gomock.Any(), bidder.ID).Return(&bidder, nil)
				svc.EXPECT().PlaceBid(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: commit transaction: SQLSTATE 40001", domain.ErrPersistenceFailure))
			},
			wantType: MessageTypeServerError,
			wantText: "bid could not be recorded, try again",
		},
		{
			name:   "accepted",
			userID: bidder.ID.String(),
			frame:  bidFrame(auctionID, "200"),
			setup: func(svc *mock.MockAuctionService, users *usermock.MockUserRepository) {
				users.EXPECT().GetByID(gomock.Any(), bidder.ID).Return(&bidder, nil)
				svc.EXPECT().PlaceBid(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, cmd application.PlaceBidDTO) (*domain.Bid, error) {
						require.Equal(t, auctionID, cmd.AuctionID)
						require.Equal(t, bidder.ID, cmd.BidderID, "bidder comes from the connection")
						require.True(t, cmd.Amount.Equal(decimal.NewFromInt(200)))
						return domain.NewBid(uuid.New(), cmd.AuctionID, cmd.BidderID, cmd.Amount, time.Now()), nil
					})
			},
			wantType: MessageTypeServerInfo,
			wantText: "bid accepted: 200.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mock.NewMockAuctionService(ctrl)
			users := usermock.NewMockUserRepository(ctrl)
			if tt.setup != nil {
				tt.setup(svc, users)
			}
			hub := sharedws.NewHub()
			h := NewAuctionWSHandler(svc, users, hub)
			client := sharedws.NewClient(hub, nil, auctionID.String(), tt.userID)

			h.processMessage(context.Background(), client, tt.frame)

			gotType, gotText := nextFrame(t, client)
			require.Equal(t, tt.wantType, gotType)
			require.Equal(t, tt.wantText, gotText)
		})
	}
}

func TestInitialState(t *testing.T) {
	auctionID := uuid.New()
	tests := []struct {
		name    string
		param   string
		setup   func(svc *mock.MockAuctionService)
		wantErr string
	}{
		{name: "invalid id", param: "not-a-uuid", wantErr: "invalid auction id"},
		{
			name:  "not found",
			param: auctionID.String(),
			setup: func(svc *mock.MockAuctionService) {
				svc.EXPECT().GetAuctionState(gomock.Any(), auctionID).Return(nil, domain.ErrAuctionNotFound)
			},
			wantErr: "auction not found",
		},
		{
			name:  "store down",
			param: auctionID.String(),
			setup: func(svc *mock.MockAuctionService) {
				svc.EXPECT().GetAuctionState(gomock.Any(), auctionID).Return(nil, domain.ErrPersistenceFailure)
			},
			wantErr: "failed to load auction",
		},
		{
			name:  "found",
			param: auctionID.String(),
			setup: func(svc *mock.MockAuctionService) {
				svc.EXPECT().GetAuctionState(gomock.Any(), auctionID).Return(&application.AuctionStateDTO{
					AuctionID:    auctionID,
					CurrentPrice: decimal.NewFromInt(150),
					Status:       domain.StatusActive,
				}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mock.NewMockAuctionService(ctrl)
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewAuctionWSHandler(svc, usermock.NewMockUserRepository(ctrl), sharedws.NewHub())

			id, data, err := h.initialState(context.Background(), tt.param)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, auctionID, id)

			var msg ServerInitialStateMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			require.Equal(t, MessageTypeServerInitialState, msg.Type)
			require.True(t, msg.Payload.CurrentPrice.Equal(decimal.NewFromInt(150)))
		})
	}
}

func TestUpgrade_IdentityOnlyFromGatewayHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAuctionWSHandler(mock.NewMockAuctionService(ctrl), usermock.NewMockUserRepository(ctrl), sharedws.NewHub())

	app := fiber.New()
	app.Use("/ws", h.upgrade)
	app.Get("/ws/whoami", func(c *fiber.Ctx) error {
		id, _ := c.Locals(localsUserID).(string)
		return c.SendString(id)
	})

	userID := uuid.NewString()
	tests := []struct {
		name       string
		path       string
		header     string
		upgrade    bool
		wantStatus int
		wantUser   string
	}{
		{name: "gateway header", path: "/ws/whoami", header: userID, upgrade: true, wantStatus: http.StatusOK, wantUser: userID},
		{name: "query param is ignored", path: "/ws/whoami?user_id=" + userID, upgrade: true, wantStatus: http.StatusOK, wantUser: ""},
		{name: "plain http", path: "/ws/whoami", header: userID, wantStatus: http.StatusUpgradeRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, tt.wantUser, string(body))
		})
	}
}
