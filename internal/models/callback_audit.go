package models

import "time"

// CallbackAudit records every inbound gateway notification and how it was
// classified. Callback-path errors are swallowed at the endpoint, so this
// trail is the only place a malformed or unmatched callback stays visible.
type CallbackAudit struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CheckoutRequestID string    `gorm:"size:100;index" json:"checkout_request_id"`
	Outcome           string    `gorm:"size:20;not null;index" json:"outcome"`
	Detail            string    `gorm:"size:255" json:"detail"`
	RawPayload        string    `gorm:"type:text" json:"raw_payload"`
	IP                string    `gorm:"size:45" json:"ip"`
	CreatedAt         time.Time `json:"created_at"`
}

func (CallbackAudit) TableName() string {
	return "callback_audits"
}
