package server

import (
	handler "bulk-auction/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface, streamer handler.ListingStreamer, limiter *ClientRateLimiter) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	if limiter != nil {
		router.Use(limiter.Middleware())
	}

	biddingHandler := handler.NewBiddingHandler(biddingService, streamer)

	bids := router.Group("/bids")
	{
		bids.POST("", biddingHandler.RecordBidHandler)
		bids.POST("/validate", biddingHandler.ValidateBidHandler)
		bids.GET("/:bid_id", biddingHandler.GetBidHandler)
		bids.PATCH("/:bid_id", biddingHandler.UpdateBidHandler)
		bids.DELETE("/:bid_id", biddingHandler.CancelBidHandler)
		bids.GET("/:bid_id/history", biddingHandler.GetBidHistoryHandler)
		bids.POST("/:bid_id/paid", biddingHandler.MarkPaidHandler)
	}

	listings := router.Group("/listings")
	{
		listings.GET("/:listing_id", biddingHandler.GetListingHandler)
		listings.GET("/:listing_id/bids", biddingHandler.GetBidsByListingHandler)
		listings.GET("/:listing_id/winning", biddingHandler.GetWinningBidHandler)
		listings.GET("/:listing_id/statistics", biddingHandler.GetStatisticsHandler)
		listings.GET("/:listing_id/settlement", biddingHandler.GetSettlementHandler)
		listings.GET("/:listing_id/stream", biddingHandler.StreamListingHandler)
		listings.POST("/:listing_id/close", biddingHandler.CloseListingHandler)
		listings.POST("/:listing_id/schedule", biddingHandler.ScheduleListingHandler)
		listings.POST("/:listing_id/suspend", biddingHandler.SuspendListingHandler)
		listings.POST("/:listing_id/approve", biddingHandler.ApproveListingHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/bids", biddingHandler.GetBidsByUserHandler)
	}

	return router
}
