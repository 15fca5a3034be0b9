package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"bulk-auction/internal/auctionclock"
	"bulk-auction/internal/autobid"
	bidding "bulk-auction/internal/biddingService"
	"bulk-auction/internal/directory"
	"bulk-auction/internal/ledger"
	"bulk-auction/internal/lock"
	model "bulk-auction/internal/models"
	"bulk-auction/internal/notify"
	"bulk-auction/internal/repository"
	"bulk-auction/internal/server"
	"bulk-auction/internal/settlement"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TestEnv is a full in-memory stack behind the real router
type TestEnv struct {
	Router   *gin.Engine
	Dir      *directory.Memory
	Recorder *notify.Recorder
	Hub      *notify.Hub
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// openListing is accepting bids for the next hour
func openListing(id, ownerID, startingPrice string, reserve *decimal.Decimal) model.Listing {
	now := time.Now().UTC()
	return model.Listing{
		ListingID:          id,
		OwnerID:            ownerID,
		Currency:           "EUR",
		StartingPrice:      dec(startingPrice),
		ReservePrice:       reserve,
		MinimumOrderVolume: dec("1"),
		AvailableVolume:    dec("100"),
		Status:             model.ListingStatusScheduled,
		OpensAt:            now.Add(-time.Minute),
		ClosesAt:           now.Add(time.Hour),
	}
}

// SetupTestEnv wires the bidding stack with the given listings, four bidders and a payment-ready seller1
func SetupTestEnv(listings ...model.Listing) *TestEnv {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	dir := directory.NewMemory()
	for _, l := range listings {
		dir.AddListing(l)
	}
	for _, id := range []string{"buyer1", "buyer2", "buyer3"} {
		dir.AddBidder(model.Bidder{BidderID: id, AccountClass: model.AccountClassBuyer})
	}
	dir.AddBidder(model.Bidder{BidderID: "broker1", AccountClass: model.AccountClassBroker})
	dir.SetPaymentReady("seller1", true)

	recorder := &notify.Recorder{}
	hub := notify.NewHub()
	dispatcher := notify.Multi{recorder, hub}
	locker := lock.NewLocalLocker(2 * time.Second)

	clock := auctionclock.New(dir, dir, locker)
	settler := settlement.New(repo, dir, dir, locker, dispatcher)
	service := bidding.NewBiddingService(bidding.Deps{
		Repo:       repo,
		Listings:   dir,
		Bidders:    dir,
		Ledger:     ledger.New(repo, dir, dir, locker, ledger.WithObserver(autobid.NewAgent(dec("1")))),
		Clock:      clock,
		Settlement: settler,
		Dispatcher: dispatcher,
	})

	return &TestEnv{
		Router:   server.SetupRouter(service, hub, nil),
		Dir:      dir,
		Recorder: recorder,
		Hub:      hub,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// data returns the object payload of a response envelope
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no object data: %v", resp)
	}
	return d
}

// dataList returns the list payload of a response envelope
func dataList(t *testing.T, resp map[string]any) []any {
	t.Helper()
	d, ok := resp["data"].([]any)
	if !ok {
		t.Fatalf("response has no list data: %v", resp)
	}
	return d
}
