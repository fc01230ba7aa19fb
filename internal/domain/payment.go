package domain

import "time"

// Payment lifecycle states. SUCCESS, FAILED and CANCELLED are terminal.
const (
	PaymentInitiated = "INITIATED"
	PaymentPending   = "PENDING"
	PaymentSuccess   = "SUCCESS"
	PaymentFailed    = "FAILED"
	PaymentCancelled = "CANCELLED"
)

// PaymentTerminal reports whether status permits no further transition.
func PaymentTerminal(status string) bool {
	switch status {
	case PaymentSuccess, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the payment state machine permits moving
// from one status to another:
//
//	INITIATED -> PENDING | SUCCESS | FAILED | CANCELLED
//	PENDING   -> SUCCESS | FAILED | CANCELLED
//
// Terminal states have no outgoing edges. Direct INITIATED -> SUCCESS covers
// gateways that settle synchronously.
func CanTransition(from, to string) bool {
	switch from {
	case PaymentInitiated:
		return to == PaymentPending || to == PaymentSuccess ||
			to == PaymentFailed || to == PaymentCancelled
	case PaymentPending:
		return to == PaymentSuccess || to == PaymentFailed || to == PaymentCancelled
	}
	return false
}

// PaymentRecord is the durable record of one payment attempt. Records are
// never deleted; status changes go through the ledger's transition API only.
type PaymentRecord struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentReference   string     `gorm:"size:64;uniqueIndex" json:"payment_reference"`
	PolicyNumber       string     `gorm:"size:64;index" json:"policy_number"`
	Amount             float64    `json:"amount"`
	Currency           string     `gorm:"size:8" json:"currency"`
	PaymentMethod      string     `gorm:"size:32" json:"payment_method"`
	Status             string     `gorm:"size:16;index" json:"status"`
	GatewayReference   string     `gorm:"size:128" json:"gateway_reference"`
	Metadata           string     `gorm:"type:text" json:"metadata"` // raw JSON bag
	InitiatedAt        time.Time  `gorm:"index" json:"initiated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CallbackReceivedAt *time.Time `json:"callback_received_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PaymentStatusLog is the append-only audit trail of payment transitions.
// Exactly one row per accepted transition; rows are never mutated.
type PaymentStatusLog struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID        int64     `gorm:"index" json:"payment_id"`
	PaymentReference string    `gorm:"size:64;index" json:"payment_reference"`
	OldStatus        string    `gorm:"size:16" json:"old_status"`
	NewStatus        string    `gorm:"size:16" json:"new_status"`
	Reason           string    `gorm:"size:255" json:"reason"`
	ChangedBy        string    `gorm:"size:64" json:"changed_by"`
	AdditionalData   string    `gorm:"type:text" json:"additional_data"` // raw JSON
	ChangedAt        time.Time `json:"changed_at"`
}
