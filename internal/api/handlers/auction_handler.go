package handlers

import (
	"net/http"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AuctionHandler struct {
	lifecycle    *services.LifecycleService
	bidService   *services.BidService
	proxyService *services.ProxyService
	auctions     domain.AuctionRepository
	bids         domain.VisibleBidRepository
	snapshots    domain.SnapshotCache
	log          logger.Logger
}

func NewAuctionHandler(
	lifecycle *services.LifecycleService,
	bidService *services.BidService,
	proxyService *services.ProxyService,
	auctions domain.AuctionRepository,
	bids domain.VisibleBidRepository,
	snapshots domain.SnapshotCache,
	log logger.Logger,
) *AuctionHandler {
	return &AuctionHandler{
		lifecycle:    lifecycle,
		bidService:   bidService,
		proxyService: proxyService,
		auctions:     auctions,
		bids:         bids,
		snapshots:    snapshots,
		log:          log,
	}
}

type CreateAuctionRequest struct {
	SellerID       string    `json:"seller_id"`
	SellerUsername string    `json:"seller_username"`
	ProductID      string    `json:"product_id"`
	Title          string    `json:"title"`
	ImageURL       string    `json:"image_url"`
	CategoryIDs    []string  `json:"category_ids"`
	Type           string    `json:"type"`
	StartPrice     float64   `json:"start_price"`
	ReservePrice   float64   `json:"reserve_price"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

type AuctionResponse struct {
	AuctionID    string    `json:"auction_id"`
	SellerID     string    `json:"seller_id"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	StartPrice   float64   `json:"start_price"`
	CurrentBid   float64   `json:"current_bid"`
	NextMinimum  float64   `json:"next_minimum_bid"`
	BidCount     int       `json:"bid_count"`
	ReserveMet   bool      `json:"reserve_met"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	WinnerID     string    `json:"winner_id,omitempty"`
	WinningBid   float64   `json:"winning_bid,omitempty"`
	SoldBySeller bool      `json:"sold_by_seller,omitempty"`
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	auctionType := domain.AuctionType(req.Type)
	if auctionType != domain.AuctionLive && auctionType != domain.AuctionTimed {
		return c.JSON(http.StatusBadRequest, errorBody("type must be live or timed"))
	}
	if req.SellerID == "" || req.ProductID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("seller_id and product_id are required"))
	}
	if req.StartPrice <= 0 {
		return c.JSON(http.StatusBadRequest, errorBody("start price must be positive"))
	}
	if !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusBadRequest, errorBody("end time must be after start time"))
	}

	auction, err := h.lifecycle.CreateAuction(c.Request().Context(), services.CreateAuctionParams{
		SellerID:       req.SellerID,
		SellerUsername: req.SellerUsername,
		ProductID:      req.ProductID,
		Title:          req.Title,
		ImageURL:       req.ImageURL,
		CategoryIDs:    req.CategoryIDs,
		Type:           auctionType,
		StartPrice:     req.StartPrice,
		ReservePrice:   req.ReservePrice,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	})
	if err != nil {
		h.log.Error("Failed to create auction", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("failed to create auction"))
	}

	return c.JSON(http.StatusCreated, toResponse(auction))
}

func (h *AuctionHandler) ListActiveAuctions(c echo.Context) error {
	auctions, err := h.auctions.GetActiveAuctions(c.Request().Context())
	if err != nil {
		return h.renderError(c, err)
	}

	responses := make([]AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		responses = append(responses, toResponse(auction))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"auctions": responses,
		"count":    len(responses),
	})
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID := c.Param("id")

	auction, err := h.auctions.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, toResponse(auction))
}

// GetAuctionState serves the last published snapshot from the cache. This is
// the lock-free display path; it may trail a mutation in flight.
func (h *AuctionHandler) GetAuctionState(c echo.Context) error {
	auctionID := c.Param("id")

	snapshot, err := h.snapshots.GetSnapshot(c.Request().Context(), auctionID)
	if err != nil {
		h.log.Error("Snapshot cache read failed", "auction_id", auctionID, "error", err)
	}
	if snapshot != nil {
		return c.JSON(http.StatusOK, snapshot)
	}

	// Nothing published yet (or cache miss): build from the record.
	auction, err := h.auctions.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, services.BuildSnapshot(auction, nil, time.Now()))
}

func (h *AuctionHandler) GetBidHistory(c echo.Context) error {
	auctionID := c.Param("id")

	if _, err := h.auctions.GetAuction(c.Request().Context(), auctionID); err != nil {
		return h.renderError(c, err)
	}
	bids, err := h.bids.GetBidHistory(c.Request().Context(), auctionID)
	if err != nil {
		return h.renderError(c, err)
	}

	history := make([]map[string]interface{}, 0, len(bids))
	for _, bid := range bids {
		history = append(history, map[string]interface{}{
			"bidder_id":        bid.BidderID,
			"bidder_username":  bid.BidderUsername,
			"amount":           bid.Amount,
			"bid_time":         bid.BidTime,
			"system_generated": bid.SystemGenerated,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"auction_id": auctionID,
		"bids":       history,
	})
}

type PlaceBidRequest struct {
	BidderID       string  `json:"bidder_id"`
	BidderUsername string  `json:"bidder_username"`
	Amount         float64 `json:"amount"`
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.BidderID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("bidder_id is required"))
	}

	snapshot, err := h.bidService.PlaceBid(c.Request().Context(),
		c.Param("id"), req.BidderID, req.BidderUsername, req.Amount)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

type PlaceMaxBidRequest struct {
	BidderID       string  `json:"bidder_id"`
	BidderUsername string  `json:"bidder_username"`
	MaxBid         float64 `json:"max_bid"`
}

func (h *AuctionHandler) PlaceMaxBid(c echo.Context) error {
	var req PlaceMaxBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.BidderID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("bidder_id is required"))
	}

	snapshot, err := h.proxyService.PlaceMaxBid(c.Request().Context(),
		c.Param("id"), req.BidderID, req.BidderUsername, req.MaxBid)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

type SellerActionRequest struct {
	SellerID string `json:"seller_id"`
}

func (h *AuctionHandler) CancelAuction(c echo.Context) error {
	var req SellerActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	snapshot, err := h.lifecycle.Cancel(c.Request().Context(), c.Param("id"), req.SellerID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h *AuctionHandler) HammerDown(c echo.Context) error {
	var req SellerActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	snapshot, err := h.lifecycle.HammerDown(c.Request().Context(), c.Param("id"), req.SellerID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// renderError maps the engine's error kinds onto HTTP statuses so that API
// clients can tell "try again" from "not currently possible".
func (h *AuctionHandler) renderError(c echo.Context, err error) error {
	switch {
	case domain.IsNotFound(err):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case domain.IsUnauthorized(err):
		return c.JSON(http.StatusForbidden, errorBody(err.Error()))
	case domain.IsInvalidState(err):
		return c.JSON(http.StatusConflict, errorBody(err.Error()))
	case domain.IsInvalidBid(err):
		return c.JSON(http.StatusUnprocessableEntity, errorBody(err.Error()))
	case domain.IsRetryable(err):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, errorBody("auction busy, retry"))
	default:
		h.log.Error("Unhandled request error", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func toResponse(auction *domain.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:    auction.ID,
		SellerID:     auction.SellerID,
		Title:        auction.Title,
		Type:         string(auction.Type),
		Status:       auction.Status.String(),
		StartPrice:   auction.StartPrice,
		CurrentBid:   auction.CurrentBid,
		NextMinimum:  auction.NextMinimumBid(),
		BidCount:     auction.BidCount,
		ReserveMet:   auction.ReserveMet,
		StartTime:    auction.StartTime,
		EndTime:      auction.EndTime,
		WinnerID:     auction.WinnerID,
		WinningBid:   auction.WinningBid,
		SoldBySeller: auction.SoldBySeller,
	}
}
