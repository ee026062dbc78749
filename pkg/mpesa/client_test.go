package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	tokenHits int64
	stkHits   int64
	lastSTK   stkPushPayload
	mu        sync.Mutex

	tokenStatus int
	stkStatus   int
	stkBody     string
}

func newFakeGateway(t *testing.T) (*fakeGateway, *Client) {
	g := &fakeGateway{tokenStatus: http.StatusOK, stkStatus: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			atomic.AddInt64(&g.tokenHits, 1)
			if g.tokenStatus != http.StatusOK {
				w.WriteHeader(g.tokenStatus)
				fmt.Fprint(w, `{"errorMessage":"Bad credentials"}`)
				return
			}
			fmt.Fprint(w, `{"access_token":"test-token","expires_in":"3599"}`)
		case "/mpesa/stkpush/v1/processrequest":
			atomic.AddInt64(&g.stkHits, 1)
			if r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var payload stkPushPayload
			_ = json.NewDecoder(r.Body).Decode(&payload)
			g.mu.Lock()
			g.lastSTK = payload
			g.mu.Unlock()
			if g.stkStatus != http.StatusOK {
				w.WriteHeader(g.stkStatus)
				fmt.Fprint(w, g.stkBody)
				return
			}
			fmt.Fprint(w, `{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient("sandbox", "key", "secret", "174379", "testpasskey", "https://fees.example.ac.ke/api/v1/webhooks/mpesa")
	c.BaseURL = srv.URL
	return g, c
}

func TestSTKPushBuildsWireRequest(t *testing.T) {
	g, c := newFakeGateway(t)
	resp, err := c.STKPush(context.Background(), STKPushRequest{
		Phone:            "0712345678",
		Amount:           decimal.RequireFromString("100.01"),
		AccountReference: "INV-2026-000042-EXTRA", // 20+ chars
		Description:      "Fees INV-2026-000042",  // 20 chars
	})
	require.NoError(t, err)
	require.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)
	require.Equal(t, "29115-34620561-1", resp.MerchantRequestID)

	g.mu.Lock()
	sent := g.lastSTK
	g.mu.Unlock()
	require.Equal(t, "254712345678", sent.PartyA)
	require.Equal(t, "254712345678", sent.PhoneNumber)
	require.Equal(t, "174379", sent.BusinessShortCode)
	require.Equal(t, "174379", sent.PartyB)
	require.Equal(t, "CustomerPayBillOnline", sent.TransactionType)
	require.Equal(t, int64(101), sent.Amount) // rounded up
	require.Len(t, sent.AccountReference, 12)
	require.Equal(t, "INV-2026-000", sent.AccountReference)
	require.Len(t, sent.TransactionDesc, 13)
	require.Equal(t, "Fees INV-2026", sent.TransactionDesc)
	require.Equal(t, "https://fees.example.ac.ke/api/v1/webhooks/mpesa", sent.CallBackURL)

	// password is derived from the exact timestamp in the body
	want := base64.StdEncoding.EncodeToString([]byte("174379" + "testpasskey" + sent.Timestamp))
	require.Equal(t, want, sent.Password)
	require.Len(t, sent.Timestamp, 14)
}

func TestTokenSingleFlight(t *testing.T) {
	g, c := newFakeGateway(t)
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.STKPush(context.Background(), STKPushRequest{
				Phone:  "0712345678",
				Amount: decimal.NewFromInt(100),
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), atomic.LoadInt64(&g.tokenHits), "concurrent callers must collapse into one refresh")
	require.Equal(t, int64(10), atomic.LoadInt64(&g.stkHits))
}

func TestTokenReusedAcrossCalls(t *testing.T) {
	g, c := newFakeGateway(t)
	for i := 0; i < 3; i++ {
		_, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: decimal.NewFromInt(50)})
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), atomic.LoadInt64(&g.tokenHits))
}

func TestSTKPushAuthRejected(t *testing.T) {
	g, c := newFakeGateway(t)
	g.tokenStatus = http.StatusUnauthorized
	_, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: decimal.NewFromInt(100)})
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr), "got %v", err)
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestSTKPushGatewayErrorEnvelope(t *testing.T) {
	g, c := newFakeGateway(t)
	g.stkStatus = http.StatusBadRequest
	g.stkBody = `{"requestId":"1234","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`
	_, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: decimal.NewFromInt(100)})
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr), "got %v", err)
	require.Equal(t, "400.002.02", gwErr.Code)
	require.Contains(t, gwErr.Message, "Invalid PhoneNumber")
}

func TestSTKPushRejectsBadInputBeforeNetwork(t *testing.T) {
	g, c := newFakeGateway(t)
	_, err := c.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = c.STKPush(context.Background(), STKPushRequest{Phone: "+-/", Amount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, ErrInvalidPhone)
	require.Equal(t, int64(0), atomic.LoadInt64(&g.tokenHits))
	require.Equal(t, int64(0), atomic.LoadInt64(&g.stkHits))
}
