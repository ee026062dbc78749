package mpesa

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMalformedCallback = errors.New("malformed callback payload")

// CallbackEnvelope is the asynchronous STK result the gateway POSTs to the
// callback URL.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// ParseCallback decodes the raw webhook body. A payload without a checkout
// request id cannot be correlated and is treated as malformed.
func ParseCallback(body []byte) (*StkCallback, error) {
	var envelope CallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ErrMalformedCallback
	}
	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, ErrMalformedCallback
	}
	return &cb, nil
}

// PaymentFacts are the success-path fields extracted from the callback
// metadata.
type PaymentFacts struct {
	Amount        decimal.Decimal
	ReceiptNumber string
	PayerPhone    string
	PaidAt        time.Time
}

// Facts builds the payment facts from the metadata items. Entries are keyed
// by Name; the gateway does not guarantee their order.
func (cb *StkCallback) Facts() (*PaymentFacts, error) {
	values := make(map[string]interface{}, len(cb.CallbackMetadata.Item))
	for _, item := range cb.CallbackMetadata.Item {
		values[item.Name] = item.Value
	}
	amount, ok := toDecimal(values["Amount"])
	if !ok || !amount.IsPositive() {
		return nil, ErrMalformedCallback
	}
	receipt := toString(values["MpesaReceiptNumber"])
	if receipt == "" {
		return nil, ErrMalformedCallback
	}
	facts := &PaymentFacts{
		Amount:        amount,
		ReceiptNumber: receipt,
		PayerPhone:    toString(values["PhoneNumber"]),
		PaidAt:        time.Now(),
	}
	if t, err := time.ParseInLocation(timestampLayout, toString(values["TransactionDate"]), time.Local); err == nil {
		facts.PaidAt = t
	}
	return facts, nil
}

// JSON numbers arrive as float64; phone numbers and transaction dates are
// too large to format through %v without scientific notation.
func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
