package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	// refresh the bearer token this long before the gateway expires it
	tokenSafetyMargin = 60 * time.Second

	timestampLayout = "20060102150405"

	accountRefMaxLen  = 12
	descriptionMaxLen = 13
)

// Client implements STK push against the Daraja API.
type Client struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string

	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	refresh     singleflight.Group
}

// NewClient builds a client for the given environment; anything other than
// "production" talks to the sandbox host.
func NewClient(env, consumerKey, consumerSecret, shortcode, passkey, callbackURL string) *Client {
	baseURL := sandboxBaseURL
	if env == "production" {
		baseURL = productionBaseURL
	}
	return &Client{
		BaseURL:        baseURL,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Shortcode:      shortcode,
		Passkey:        passkey,
		CallbackURL:    callbackURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"` // seconds, as a string
}

// acquireToken returns the cached bearer token, refreshing it when it is
// within the safety margin of expiry. Concurrent callers collapse into a
// single outbound refresh and all receive its result.
func (c *Client) acquireToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Until(c.tokenExpiry) > tokenSafetyMargin {
		tok := c.token
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		// a previous flight may have refreshed it while we waited
		c.mu.Lock()
		if c.token != "" && time.Until(c.tokenExpiry) > tokenSafetyMargin {
			tok := c.token
			c.mu.Unlock()
			return tok, nil
		}
		c.mu.Unlock()
		tok, expiry, err := c.requestToken(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = tok
		c.tokenExpiry = expiry
		c.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) requestToken(ctx context.Context) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", time.Time{}, err
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", time.Time{}, &AuthError{Status: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token request: status %d", resp.StatusCode)
	}
	var out tokenResp
	if err := json.Unmarshal(body, &out); err != nil {
		return "", time.Time{}, err
	}
	if out.AccessToken == "" {
		return "", time.Time{}, &AuthError{Status: resp.StatusCode, Message: "empty access token"}
	}
	secs, err := strconv.Atoi(out.ExpiresIn)
	if err != nil || secs <= 0 {
		secs = 3599
	}
	return out.AccessToken, time.Now().Add(time.Duration(secs) * time.Second), nil
}

type STKPushRequest struct {
	Phone            string
	Amount           decimal.Decimal
	AccountReference string
	Description      string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkErrorResp struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// STKPush sends a payment prompt to the customer's phone. The reference and
// description fields are hard-truncated to the wire protocol's fixed widths
// (12 and 13 characters); the gateway enforces the same limit server-side.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	phone := NormalizePhone(req.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	token, err := c.acquireToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("mpesa auth: %w", err)
	}
	// the timestamp in the body must be the exact one the password was
	// derived from; the gateway recomputes and compares
	timestamp := time.Now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.Shortcode + c.Passkey + timestamp))
	payload := stkPushPayload{
		BusinessShortCode: c.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.Ceil().IntPart(),
		PartyA:            phone,
		PartyB:            c.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.CallbackURL,
		AccountReference:  truncate(req.AccountReference, accountRefMaxLen),
		TransactionDesc:   truncate(req.Description, descriptionMaxLen),
	}
	body, _ := json.Marshal(payload)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set("Authorization", "Bearer "+token)
	log.Printf("[MPESA] STK push phone=%s amount=%d ref=%s", phone, payload.Amount, payload.AccountReference)
	resp, err := c.httpClient.Do(apiReq)
	if err != nil {
		return nil, &GatewayError{Code: "NETWORK", Message: err.Error()}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var envelope stkErrorResp
		if json.Unmarshal(respBody, &envelope) == nil && envelope.ErrorCode != "" {
			return nil, &GatewayError{Code: envelope.ErrorCode, Message: envelope.ErrorMessage}
		}
		return nil, &GatewayError{Code: strconv.Itoa(resp.StatusCode), Message: string(respBody)}
	}
	var out STKPushResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &GatewayError{Code: "BADRESPONSE", Message: err.Error()}
	}
	if out.ResponseCode != "0" {
		return nil, &GatewayError{Code: out.ResponseCode, Message: out.ResponseDescription}
	}
	log.Printf("[MPESA] STK accepted merchant_request_id=%s checkout_request_id=%s", out.MerchantRequestID, out.CheckoutRequestID)
	return &out, nil
}
