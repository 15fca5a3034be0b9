package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	model "bulk-auction/internal/models"
	"bulk-auction/services/bidding/helpers"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func bidRequest(listingID, bidderID, price, volume string) helpers.PlaceBidRequest {
	return helpers.PlaceBidRequest{
		ListingID:       listingID,
		BidderID:        bidderID,
		PricePerUnit:    dec(price),
		VolumeRequested: dec(volume),
	}
}

// placeBid posts a bid and returns its payload
func placeBid(t *testing.T, env *TestEnv, req helpers.PlaceBidRequest) map[string]any {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids", req)
	require.Equal(t, http.StatusCreated, w.Code, resp)
	return data(t, resp)
}

// RecordBidHandler Tests
func TestRecordBidHandler(t *testing.T) {
	tests := []struct {
		name       string
		request    any
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "Valid_Bid",
			request:    bidRequest("listing1", "buyer1", "55", "10"),
			wantStatus: http.StatusCreated,
			wantMsg:    "bid recorded successfully",
		},
		{
			name:       "Invalid_JSON",
			request:    "{listing_id: 'missing quotes', price_per_unit: 100}", // invalid JSON
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid request payload",
		},
		{
			name:       "Below_Starting_Price",
			request:    bidRequest("listing1", "buyer1", "49.99", "10"),
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "bid price too low",
		},
		{
			name:       "Below_Starting_Price_Past_Precision",
			request:    bidRequest("listing1", "buyer1", "49.99995", "10"),
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "too many decimal places",
		},
		{
			name:       "Volume_Above_Available",
			request:    bidRequest("listing1", "buyer1", "55", "101"),
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "bid volume out of range",
		},
		{
			name:       "Broker_Not_Allowed",
			request:    bidRequest("listing1", "broker1", "55", "10"),
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "broker bids not allowed",
		},
		{
			name:       "Unknown_Listing",
			request:    bidRequest("ghost", "buyer1", "55", "10"),
			wantStatus: http.StatusNotFound,
			wantMsg:    "listing not found",
		},
		{
			name:       "Unknown_Bidder",
			request:    bidRequest("listing1", "stranger", "55", "10"),
			wantStatus: http.StatusNotFound,
			wantMsg:    "bidder not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := SetupTestEnv(openListing("listing1", "seller1", "50", nil))
			resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids", tt.request)
			require.Equal(t, tt.wantStatus, w.Code)
			require.Contains(t, resp["message"], tt.wantMsg)

			if tt.wantStatus == http.StatusCreated {
				bid := data(t, resp)
				require.Equal(t, "listing1", bid["listing_id"])
				require.Equal(t, "buyer1", bid["bidder_id"])
				require.Equal(t, "55", bid["price_per_unit"])
				require.Equal(t, "550", bid["total_bid_value"])
				require.Equal(t, "winning", bid["status"])
				require.Equal(t, 1.0, bid["rank"])
				require.NotEmpty(t, bid["bid_id"])

				_, err := time.Parse(time.RFC3339Nano, bid["created_at"].(string))
				require.NoError(t, err)
			}
		})
	}
}

// Ranking, tie-break and upsert through the HTTP surface
func TestGetBidsByListingHandler(t *testing.T) {
	env := SetupTestEnv(openListing("listing1", "seller1", "50", nil))

	first := placeBid(t, env, bidRequest("listing1", "buyer1", "60", "10"))
	placeBid(t, env, bidRequest("listing1", "buyer2", "60", "10"))
	placeBid(t, env, bidRequest("listing1", "buyer3", "55", "10"))

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bids := dataList(t, resp)
	require.Len(t, bids, 3)

	order := make([]string, 0, len(bids))
	for i, b := range bids {
		bid := b.(map[string]any)
		order = append(order, bid["bidder_id"].(string))
		require.Equal(t, float64(i+1), bid["rank"])
	}
	require.Equal(t, []string{"buyer1", "buyer2", "buyer3"}, order, "equal prices rank by submission time")

	// a second submission from the same bidder updates the existing bid
	again := placeBid(t, env, bidRequest("listing1", "buyer3", "65", "10"))
	require.Equal(t, "winning", again["status"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dataList(t, resp), 3)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/bids/"+first["bid_id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "outbid", data(t, resp)["status"])
	require.Equal(t, 2.0, data(t, resp)["rank"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/empty/bids", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, resp["message"], "listing not found")
}

// Auto-bidder retakes the lead up to its ceiling
func TestAutoBidFlow(t *testing.T) {
	env := SetupTestEnv(openListing("listing1", "seller1", "50", nil))

	auto := bidRequest("listing1", "buyer1", "55", "10")
	auto.IsAutoBid = true
	auto.AutoRaiseCeiling = decPtr("62")
	placeBid(t, env, auto)

	placeBid(t, env, bidRequest("listing1", "buyer2", "60", "10"))

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1/winning", nil)
	require.Equal(t, http.StatusOK, w.Code)
	leader := data(t, resp)
	require.Equal(t, "buyer1", leader["bidder_id"])
	require.Equal(t, "61", leader["price_per_unit"])
	require.Len(t, env.Recorder.OfType(model.EventAutoBidTriggered), 1)

	// past the ceiling the auto-bidder stays outbid
	placeBid(t, env, bidRequest("listing1", "buyer2", "63", "10"))

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1/winning", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "buyer2", data(t, resp)["bidder_id"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := data(t, resp)
	require.Equal(t, 2.0, stats["bid_count"])
	require.Equal(t, "63", stats["highest_price"])
	require.Equal(t, 2.0, stats["unique_bidder_count"])
}

// Update, cancel and history
func TestUpdateAndCancelBid(t *testing.T) {
	env := SetupTestEnv(openListing("listing1", "seller1", "50", nil))

	bid := placeBid(t, env, bidRequest("listing1", "buyer1", "55", "10"))
	bidURL := "/bids/" + bid["bid_id"].(string)

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPatch, bidURL, helpers.UpdateBidRequest{PricePerUnit: decPtr("58")})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "58", data(t, resp)["price_per_unit"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPatch, bidURL, helpers.UpdateBidRequest{PricePerUnit: decPtr("10")})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, resp["message"], "bid price too low")

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodDelete, bidURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "cancelled", data(t, resp)["status"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodDelete, bidURL, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, dataList(t, resp))

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, bidURL+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := dataList(t, resp)
	reasons := make([]string, 0, len(history))
	for _, h := range history {
		reasons = append(reasons, h.(map[string]any)["reason"].(string))
	}
	require.Equal(t, []string{"placed", "raised", "cancelled"}, reasons)

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/bids/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

// Closing settles exactly once and notifies one winner
func TestCloseListingFlow(t *testing.T) {
	env := SetupTestEnv(openListing("listing1", "seller1", "50", nil))

	placeBid(t, env, bidRequest("listing1", "buyer1", "55", "10"))
	winner := placeBid(t, env, bidRequest("listing1", "buyer2", "57", "20"))
	placeBid(t, env, bidRequest("listing1", "buyer3", "56", "5"))

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/listing1/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := data(t, resp)
	require.Equal(t, "won", result["outcome"])
	require.Equal(t, "buyer2", result["winner_id"])
	require.Equal(t, "1140", result["total_value"])
	require.Equal(t, true, result["payment_scheduled"])
	require.Len(t, result["lost_bid_ids"], 2)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/listing1/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, result["settlement_id"], data(t, resp)["settlement_id"])
	require.Len(t, env.Recorder.OfType(model.EventAuctionWon), 1)
	require.Len(t, env.Recorder.OfType(model.EventBidLost), 2)
	require.Len(t, env.Recorder.OfType(model.EventPaymentCaptureRequested), 1)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1/settlement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, result["settlement_id"], data(t, resp)["settlement_id"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/listings/listing1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "closed", data(t, resp)["status"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids", bidRequest("listing1", "buyer1", "90", "10"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	winnerURL := "/bids/" + winner["bid_id"].(string)
	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, winnerURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "won", data(t, resp)["status"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, winnerURL+"/paid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "paid", data(t, resp)["status"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, winnerURL+"/paid", nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

// Unsold outcomes
func TestCloseListingUnsold(t *testing.T) {
	tests := []struct {
		name       string
		reserve    string
		bids       []helpers.PlaceBidRequest
		wantReason string
	}{
		{name: "No_Bids", wantReason: "no bids"},
		{
			name:       "Reserve_Not_Met",
			reserve:    "200",
			bids:       []helpers.PlaceBidRequest{bidRequest("listing1", "buyer1", "150", "10")},
			wantReason: "reserve price 200.00 not met",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := openListing("listing1", "seller1", "50", nil)
			if tt.reserve != "" {
				listing.ReservePrice = decPtr(tt.reserve)
			}
			env := SetupTestEnv(listing)
			for _, b := range tt.bids {
				placeBid(t, env, b)
			}

			resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/listing1/close", nil)
			require.Equal(t, http.StatusOK, w.Code)
			result := data(t, resp)
			require.Equal(t, "unsold", result["outcome"])
			require.Equal(t, tt.wantReason, result["reason"])
			require.Empty(t, env.Recorder.OfType(model.EventAuctionWon))
			require.Len(t, env.Recorder.OfType(model.EventListingClosedUnsold), 1)
		})
	}
}

// Suspension blocks bidding until approval
func TestSuspendAndApproveListing(t *testing.T) {
	env := SetupTestEnv(openListing("listing1", "seller1", "50", nil))

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/listing1/suspend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "suspended", data(t, resp)["status"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids", bidRequest("listing1", "buyer1", "55", "10"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, resp["message"], "auction not open for bidding")

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/listing1/suspend", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/listing1/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "active", data(t, resp)["status"])

	placeBid(t, env, bidRequest("listing1", "buyer1", "55", "10"))
}

// Scheduling requires a payment-ready seller
func TestScheduleListing(t *testing.T) {
	draft := model.Listing{
		ListingID:          "draft1",
		OwnerID:            "seller1",
		Currency:           "EUR",
		StartingPrice:      dec("10"),
		MinimumOrderVolume: dec("1"),
		AvailableVolume:    dec("10"),
		Status:             model.ListingStatusDraft,
	}
	unready := draft
	unready.ListingID = "draft2"
	unready.OwnerID = "seller9"
	env := SetupTestEnv(draft, unready)

	opens := time.Now().UTC().Add(time.Hour)
	req := helpers.ScheduleListingRequest{OpensAt: opens, ClosesAt: opens.Add(time.Hour)}

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/draft1/schedule", req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "scheduled", data(t, resp)["status"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/draft2/schedule", req)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, resp["message"], "seller payment account not ready")

	bad := helpers.ScheduleListingRequest{OpensAt: opens, ClosesAt: opens.Add(-time.Minute)}
	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/listings/draft2/schedule", bad)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// not open yet
	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids/validate", bidRequest("draft1", "buyer1", "10", "1"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, resp["message"], "auction not open for bidding")
}

// GetBidsByUserHandler Tests
func TestGetBidsByUserHandler(t *testing.T) {
	env := SetupTestEnv(
		openListing("listing1", "seller1", "50", nil),
		openListing("listing2", "seller1", "20", nil),
	)
	placeBid(t, env, bidRequest("listing1", "buyer1", "55", "10"))
	placeBid(t, env, bidRequest("listing2", "buyer1", "25", "10"))

	tests := []struct {
		name        string
		userID      string
		expectedIDs []string
	}{
		{name: "Newest_First", userID: "buyer1", expectedIDs: []string{"listing2", "listing1"}},
		{name: "No_Bids", userID: "buyer2", expectedIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/users/"+tt.userID+"/bids", nil)
			require.Equal(t, http.StatusOK, w.Code)

			bids := dataList(t, resp)
			got := make([]string, 0, len(bids))
			for _, b := range bids {
				got = append(got, b.(map[string]any)["listing_id"].(string))
			}
			require.Equal(t, tt.expectedIDs, got)
		})
	}
}

// Watchers of a listing receive its events over websocket
func TestListingStream(t *testing.T) {
	env := SetupTestEnv(openListing("listing1", "seller1", "50", nil))
	srv := httptest.NewServer(env.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/listings/listing1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.Hub.Watchers("listing1") == 1 }, time.Second, 5*time.Millisecond)

	body, err := json.Marshal(bidRequest("listing1", "buyer1", "55", "10"))
	require.NoError(t, err)
	httpResp, err := http.Post(srv.URL+"/bids", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	httpResp.Body.Close()
	require.Equal(t, http.StatusCreated, httpResp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event model.Event
	require.NoError(t, json.Unmarshal(msg, &event))
	require.Equal(t, model.EventBidPlaced, event.Type)
	require.Equal(t, "buyer1", event.RecipientID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/listings/ghost/stream", nil)
	require.Error(t, err)
}
