package rest

import (
	"strconv"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/cristianortiz/pigeonAuction/internal/shared/cache"
	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	userdomain "github.com/cristianortiz/pigeonAuction/internal/user/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const maxPageSize = 100

// RateLimit configures the bid endpoint limiter, a zero Limit disables it
type RateLimit struct {
	Limiter cache.RateLimiter
	Limit   int
	Window  time.Duration
}

// AuctionHandler exposes the AuctionService over HTTP
type AuctionHandler struct {
	service application.AuctionService
	users   userdomain.UserRepository
	rate    RateLimit
	now     func() time.Time
}

func NewAuctionHandler(service application.AuctionService, users userdomain.UserRepository, rate RateLimit, now func() time.Time) *AuctionHandler {
	if now == nil {
		now = time.Now
	}
	return &AuctionHandler{service: service, users: users, rate: rate, now: now}
}

// RegisterRoutes mounts the /api/auctions routes
func (h *AuctionHandler) RegisterRoutes(router fiber.Router) {
	api := router.Group("/api", Identity(h.users))

	api.Get("/auctions", h.ListAuctions)
	api.Post("/auctions", h.CreateAuction)
	api.Get("/auctions/:id", h.GetAuction)
	api.Get("/auctions/:id/bids", h.ListBids)
	api.Post("/auctions/:id/bids", BidRateLimit(h.rate.Limiter, h.rate.Limit, h.rate.Window), h.PlaceBid)
	api.Post("/auctions/:id/finalize", h.FinalizeAuction)
	api.Post("/auctions/:id/approve", h.ApproveAuction)
	api.Post("/auctions/:id/cancel", h.CancelAuction)
}

func (h *AuctionHandler) fail(c *fiber.Ctx, handlerName string, err error) error {
	status, msg := MapErrorToHTTP(err)
	if status >= fiber.StatusInternalServerError {
		log.Error(handlerName+": request failed",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	return JSONError(c, status, err, msg)
}

func auctionIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errInvalidRequest
	}
	return id, nil
}

// ListAuctions handles GET /api/auctions?status=&seller_id=&limit=&offset=
func (h *AuctionHandler) ListAuctions(c *fiber.Ctx) error {
	filter := domain.ListFilter{Limit: maxPageSize}
	if raw := c.Query("status"); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			return JSONError(c, fiber.StatusBadRequest, err, "invalid status filter")
		}
		filter.Status = &st
	}
	if raw := c.Query("seller_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return JSONError(c, fiber.StatusBadRequest, err, "invalid seller_id filter")
		}
		filter.SellerID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return JSONError(c, fiber.StatusBadRequest, errInvalidRequest, "invalid limit")
		}
		filter.Limit = min(n, maxPageSize)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return JSONError(c, fiber.StatusBadRequest, errInvalidRequest, "invalid offset")
		}
		filter.Offset = n
	}

	auctions, err := h.service.ListAuctions(c.UserContext(), filter)
	if err != nil {
		return h.fail(c, "ListAuctions", err)
	}
	return JSONResponse(c, fiber.StatusOK, auctions, "auctions retrieved successfully")
}

// CreateAuction handles POST /api/auctions, the caller becomes the seller
func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, "CreateAuction", err)
	}
	var req CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, err, "invalid request payload")
	}

	cmd := application.CreateAuctionDTO{
		SellerID:      user.ID,
		Title:         req.Title,
		Description:   req.Description,
		Breed:         req.Breed,
		RingNumber:    req.RingNumber,
		StartingPrice: req.StartingPrice,
		BuyNowPrice:   req.BuyNowPrice,
		ReservePrice:  req.ReservePrice,
		EndTime:       req.EndTime,
	}
	if req.StartTime != nil {
		cmd.StartTime = *req.StartTime
	}
	state, err := h.service.CreateAuction(c.UserContext(), cmd)
	if err != nil {
		return h.fail(c, "CreateAuction", err)
	}
	return JSONResponse(c, fiber.StatusCreated, state, "auction created, pending approval")
}

// GetAuction handles GET /api/auctions/:id
func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return h.fail(c, "GetAuction", err)
	}
	state, err := h.service.GetAuctionState(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "GetAuction", err)
	}
	return JSONResponse(c, fiber.StatusOK, state, "auction retrieved successfully")
}

// ListBids handles GET /api/auctions/:id/bids
func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return h.fail(c, "ListBids", err)
	}
	bids, err := h.service.ListBids(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "ListBids", err)
	}
	return JSONResponse(c, fiber.StatusOK, bids, "bids retrieved successfully")
}

// PlaceBid handles POST /api/auctions/:id/bids
func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return h.fail(c, "PlaceBid", err)
	}
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, "PlaceBid", err)
	}
	if !user.CanBid() {
		return JSONError(c, fiber.StatusForbidden, domain.ErrForbidden, "only active users with a verified phone can bid")
	}

	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, err, "invalid request payload")
	}

	bid, err := h.service.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID: id,
		BidderID:  user.ID,
		Amount:    req.Amount,
	})
	if err != nil {
		return h.fail(c, "PlaceBid", err)
	}
	return JSONResponse(c, fiber.StatusCreated, application.NewBidDTO(bid), "bid recorded successfully")
}

// FinalizeAuction handles POST /api/auctions/:id/finalize. The seller and
// admins may close an auction at any time, anyone else only after it expired.
func (h *AuctionHandler) FinalizeAuction(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return h.fail(c, "FinalizeAuction", err)
	}
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, "FinalizeAuction", err)
	}
	state, err := h.service.GetAuctionState(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "FinalizeAuction", err)
	}
	if !user.Admin && state.SellerID != user.ID && !h.now().After(state.EndTime) {
		return JSONError(c, fiber.StatusForbidden, domain.ErrForbidden, "auction can only be finalized by its seller before it ends")
	}

	result, err := h.service.FinalizeAuction(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "FinalizeAuction", err)
	}
	if !result.Success {
		return JSONResponse(c, fiber.StatusConflict, result, result.Message)
	}
	return JSONResponse(c, fiber.StatusOK, result, result.Message)
}

// ApproveAuction handles POST /api/auctions/:id/approve, admins only
func (h *AuctionHandler) ApproveAuction(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return h.fail(c, "ApproveAuction", err)
	}
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, "ApproveAuction", err)
	}
	if !user.Admin {
		return JSONError(c, fiber.StatusForbidden, domain.ErrForbidden, "only admins can approve auctions")
	}
	state, err := h.service.ApproveAuction(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "ApproveAuction", err)
	}
	return JSONResponse(c, fiber.StatusOK, state, "auction approved")
}

// CancelAuction handles POST /api/auctions/:id/cancel, seller or admin
func (h *AuctionHandler) CancelAuction(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return h.fail(c, "CancelAuction", err)
	}
	user, err := currentUser(c)
	if err != nil {
		return h.fail(c, "CancelAuction", err)
	}
	if !user.Admin {
		state, err := h.service.GetAuctionState(c.UserContext(), id)
		if err != nil {
			return h.fail(c, "CancelAuction", err)
		}
		if state.SellerID != user.ID {
			return JSONError(c, fiber.StatusForbidden, domain.ErrForbidden, "only the seller or an admin can cancel")
		}
	}
	state, err := h.service.CancelAuction(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "CancelAuction", err)
	}
	return JSONResponse(c, fiber.StatusOK, state, "auction cancelled")
}
