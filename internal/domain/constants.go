package domain

const (
	RoleAdmin  = "ADMIN"
	RoleBursar = "BURSAR"
	RoleParent = "PARENT"
)

// PaymentRequest lifecycle. SENT is the only state that may transition
// onward; CONFIRMED, FAILED and EXPIRED are terminal.
const (
	RequestStatusSent      = "SENT"
	RequestStatusConfirmed = "CONFIRMED"
	RequestStatusFailed    = "FAILED"
	RequestStatusExpired   = "EXPIRED"
)

const (
	PaymentMethodMpesa  = "MPESA"
	PaymentMethodCash   = "CASH"
	PaymentMethodBank   = "BANK"
	PaymentMethodManual = "MANUAL"
)

const PaymentStatusCompleted = "COMPLETED"

// Callback audit outcomes.
const (
	CallbackOutcomeConfirmed = "CONFIRMED"
	CallbackOutcomeFailed    = "FAILED"
	CallbackOutcomeDuplicate = "DUPLICATE"
	CallbackOutcomeUnknown   = "UNKNOWN"
	CallbackOutcomeMalformed = "MALFORMED"
	CallbackOutcomeError     = "ERROR"
)
