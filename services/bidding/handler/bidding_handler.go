package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	bidding "bulk-auction/internal/biddingService"
	"bulk-auction/internal/biddingerrors"
	"bulk-auction/internal/ledger"
	model "bulk-auction/internal/models"
	"bulk-auction/services/bidding/helpers"
	"bulk-auction/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_service.go -package=handler bulk-auction/services/bidding/handler BiddingServiceInterface

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, in bidding.PlaceBidInput) (model.Bid, error)
	ValidateBid(ctx context.Context, in bidding.PlaceBidInput) error
	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	UpdateBid(ctx context.Context, bidID string, req ledger.UpdateRequest) (model.Bid, error)
	CancelBid(ctx context.Context, bidID string) (model.Bid, error)
	GetBidHistory(ctx context.Context, bidID string) ([]model.BidEvent, error)
	MarkPaid(ctx context.Context, bidID string) (model.Bid, error)
	GetBidsForListing(ctx context.Context, listingID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, listingID string) (model.Bid, error)
	GetStatistics(ctx context.Context, listingID string) (model.BidStatistics, error)
	GetSettlement(ctx context.Context, listingID string) (model.SettlementResult, error)
	CloseListing(ctx context.Context, listingID string) (model.SettlementResult, error)
	GetListing(ctx context.Context, listingID string) (model.Listing, error)
	ScheduleListing(ctx context.Context, listingID string, opensAt, closesAt time.Time) (model.Listing, error)
	SuspendListing(ctx context.Context, listingID string) (model.Listing, error)
	ApproveListing(ctx context.Context, listingID string) (model.Listing, error)
	GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
}

// ListingStreamer upgrades a request into a live event stream for one listing
type ListingStreamer interface {
	ServeListing(w http.ResponseWriter, r *http.Request, listingID string) error
}

type BiddingHandler struct {
	service  BiddingServiceInterface
	streamer ListingStreamer
	now      func() time.Time
}

func NewBiddingHandler(service BiddingServiceInterface, streamer ListingStreamer) *BiddingHandler {
	return &BiddingHandler{service: service, streamer: streamer, now: time.Now}
}

// openListings looks up the listing of every winning bid once.
// A listing that cannot be read counts as closed.
func (h *BiddingHandler) openListings(ctx context.Context, bids ...model.Bid) func(listingID string) bool {
	open := make(map[string]bool)
	now := h.now()
	for _, b := range bids {
		if b.Status != model.BidStatusWinning {
			continue
		}
		if _, seen := open[b.ListingID]; seen {
			continue
		}
		listing, err := h.service.GetListing(ctx, b.ListingID)
		open[b.ListingID] = err == nil && listing.IsOpenAt(now)
	}
	return func(listingID string) bool { return open[listingID] }
}

func (h *BiddingHandler) bidResponse(ctx context.Context, bid model.Bid) helpers.BidResponse {
	return helpers.NewBidResponse(bid, h.openListings(ctx, bid)(bid.ListingID))
}

func placeInput(req helpers.PlaceBidRequest) bidding.PlaceBidInput {
	return bidding.PlaceBidInput{
		ListingID:        req.ListingID,
		BidderID:         req.BidderID,
		Price:            req.PricePerUnit,
		Volume:           req.VolumeRequested,
		Mode:             model.VolumeMode(req.VolumeMode),
		AutoRaiseCeiling: req.AutoRaiseCeiling,
		IsAutoBid:        req.IsAutoBid,
		Notes:            req.Notes,
	}
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), placeInput(req))
	if err != nil {
		helpers.HandleServiceError(c, "RecordBidHandler", err, map[string]any{
			"listing_id": req.ListingID,
			"bidder_id":  req.BidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid, true), "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"listing_id": bid.ListingID,
		"bidder_id":  bid.BidderID,
		"price":      bid.PricePerUnit.String(),
		"rank":       bid.Rank,
	})
}

// ValidateBidHandler handles POST /bids/validate
func (h *BiddingHandler) ValidateBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ValidateBidHandler", err)
		return
	}

	if err := h.service.ValidateBid(c.Request.Context(), placeInput(req)); err != nil {
		helpers.HandleServiceError(c, "ValidateBidHandler", err, map[string]any{
			"listing_id": req.ListingID,
			"bidder_id":  req.BidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"valid": true}, "bid is valid")
}

// GetBidHandler handles GET /bids/:bid_id
func (h *BiddingHandler) GetBidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	bid, err := h.service.GetBid(c.Request.Context(), bidID)
	if err != nil {
		helpers.HandleServiceError(c, "GetBidHandler", err, map[string]any{"bid_id": bidID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, h.bidResponse(c.Request.Context(), bid), "bid retrieved successfully")
}

// UpdateBidHandler handles PATCH /bids/:bid_id
func (h *BiddingHandler) UpdateBidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	var req helpers.UpdateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateBidHandler", err)
		return
	}

	bid, err := h.service.UpdateBid(c.Request.Context(), bidID, ledger.UpdateRequest{
		Price:            req.PricePerUnit,
		Volume:           req.VolumeRequested,
		AutoRaiseCeiling: req.AutoRaiseCeiling,
		Notes:            req.Notes,
	})
	if err != nil {
		helpers.HandleServiceError(c, "UpdateBidHandler", err, map[string]any{"bid_id": bidID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid, true), "bid updated successfully")
	helpers.LogSuccess("UpdateBidHandler", "bid updated successfully", map[string]any{
		"bid_id":     bid.BidID,
		"listing_id": bid.ListingID,
		"price":      bid.PricePerUnit.String(),
		"rank":       bid.Rank,
	})
}

// CancelBidHandler handles DELETE /bids/:bid_id
func (h *BiddingHandler) CancelBidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	bid, err := h.service.CancelBid(c.Request.Context(), bidID)
	if err != nil {
		helpers.HandleServiceError(c, "CancelBidHandler", err, map[string]any{"bid_id": bidID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid, false), "bid cancelled successfully")
	helpers.LogSuccess("CancelBidHandler", "bid cancelled successfully", map[string]any{
		"bid_id":     bid.BidID,
		"listing_id": bid.ListingID,
	})
}

// GetBidHistoryHandler handles GET /bids/:bid_id/history
func (h *BiddingHandler) GetBidHistoryHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	events, err := h.service.GetBidHistory(c.Request.Context(), bidID)
	if err != nil {
		helpers.HandleServiceError(c, "GetBidHistoryHandler", err, map[string]any{"bid_id": bidID})
		return
	}

	if events == nil {
		events = []model.BidEvent{}
	}
	utils.JSONResponse(c, http.StatusOK, events, "bid history retrieved successfully")
}

// MarkPaidHandler handles POST /bids/:bid_id/paid
func (h *BiddingHandler) MarkPaidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	bid, err := h.service.MarkPaid(c.Request.Context(), bidID)
	if err != nil {
		helpers.HandleServiceError(c, "MarkPaidHandler", err, map[string]any{"bid_id": bidID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid, false), "bid marked as paid")
	helpers.LogSuccess("MarkPaidHandler", "bid marked as paid", map[string]any{
		"bid_id":     bid.BidID,
		"listing_id": bid.ListingID,
	})
}

// GetBidsByListingHandler handles GET /listings/:listing_id/bids
func (h *BiddingHandler) GetBidsByListingHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	bids, err := h.service.GetBidsForListing(c.Request.Context(), listingID)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.HandleServiceError(c, "GetBidsByListingHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids, h.openListings(c.Request.Context(), bids...)), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByListingHandler", "bids retrieved successfully", map[string]any{
		"listing_id": listingID,
		"count":      len(bids),
	})
}

// GetWinningBidHandler handles GET /listings/:listing_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"listing_id": listingID})
			return
		}
		helpers.HandleServiceError(c, "GetWinningBidHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, h.bidResponse(c.Request.Context(), bid), "winning bid retrieved successfully")
}

// GetStatisticsHandler handles GET /listings/:listing_id/statistics
func (h *BiddingHandler) GetStatisticsHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	stats, err := h.service.GetStatistics(c.Request.Context(), listingID)
	if err != nil {
		helpers.HandleServiceError(c, "GetStatisticsHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, stats, "statistics retrieved successfully")
}

// GetSettlementHandler handles GET /listings/:listing_id/settlement
func (h *BiddingHandler) GetSettlementHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	result, err := h.service.GetSettlement(c.Request.Context(), listingID)
	if err != nil {
		helpers.HandleServiceError(c, "GetSettlementHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, result, "settlement retrieved successfully")
}

// CloseListingHandler handles POST /listings/:listing_id/close
func (h *BiddingHandler) CloseListingHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	result, err := h.service.CloseListing(c.Request.Context(), listingID)
	if err != nil {
		helpers.HandleServiceError(c, "CloseListingHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, result, "listing closed successfully")
	helpers.LogSuccess("CloseListingHandler", "listing closed successfully", map[string]any{
		"listing_id": listingID,
		"outcome":    result.Outcome,
		"winner_id":  result.WinnerID,
	})
}

// GetListingHandler handles GET /listings/:listing_id
func (h *BiddingHandler) GetListingHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	listing, err := h.service.GetListing(c.Request.Context(), listingID)
	if err != nil {
		helpers.HandleServiceError(c, "GetListingHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, listing, "listing retrieved successfully")
}

// ScheduleListingHandler handles POST /listings/:listing_id/schedule
func (h *BiddingHandler) ScheduleListingHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	var req helpers.ScheduleListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ScheduleListingHandler", err)
		return
	}

	listing, err := h.service.ScheduleListing(c.Request.Context(), listingID, req.OpensAt, req.ClosesAt)
	if err != nil {
		helpers.HandleServiceError(c, "ScheduleListingHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, listing, "listing scheduled successfully")
	helpers.LogSuccess("ScheduleListingHandler", "listing scheduled successfully", map[string]any{
		"listing_id": listingID,
		"opens_at":   listing.OpensAt,
		"closes_at":  listing.ClosesAt,
	})
}

// SuspendListingHandler handles POST /listings/:listing_id/suspend
func (h *BiddingHandler) SuspendListingHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	listing, err := h.service.SuspendListing(c.Request.Context(), listingID)
	if err != nil {
		helpers.HandleServiceError(c, "SuspendListingHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, listing, "listing suspended successfully")
	helpers.LogSuccess("SuspendListingHandler", "listing suspended successfully", map[string]any{"listing_id": listingID})
}

// ApproveListingHandler handles POST /listings/:listing_id/approve
func (h *BiddingHandler) ApproveListingHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	listing, err := h.service.ApproveListing(c.Request.Context(), listingID)
	if err != nil {
		helpers.HandleServiceError(c, "ApproveListingHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, listing, "listing approved successfully")
	helpers.LogSuccess("ApproveListingHandler", "listing approved successfully", map[string]any{
		"listing_id": listingID,
		"status":     listing.Status,
	})
}

// StreamListingHandler handles GET /listings/:listing_id/stream
func (h *BiddingHandler) StreamListingHandler(c *gin.Context) {
	listingID := c.Param("listing_id")
	if _, err := h.service.GetListing(c.Request.Context(), listingID); err != nil {
		helpers.HandleServiceError(c, "StreamListingHandler", err, map[string]any{"listing_id": listingID})
		return
	}

	// the upgrader has already answered the client when this fails
	if err := h.streamer.ServeListing(c.Writer, c.Request, listingID); err != nil {
		utils.Warn("StreamListingHandler: upgrade failed", map[string]any{
			"listing_id": listingID,
			"error":      err.Error(),
		})
	}
}

// GetBidsByUserHandler handles GET /users/:user_id/bids
func (h *BiddingHandler) GetBidsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	bids, err := h.service.GetBidsByBidder(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.HandleServiceError(c, "GetBidsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids, h.openListings(c.Request.Context(), bids...)), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByUserHandler", "bids retrieved successfully", map[string]any{
		"user_id":    userID,
		"bids_count": len(bids),
	})
}
