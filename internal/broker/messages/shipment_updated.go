package messages

import "time"

// Операции, после которых публикуется ShipmentUpdated.
const (
	OpUpserted        = "upserted"
	OpUpdated         = "updated"
	OpTracked         = "tracked"
	OpPaymentInit     = "payment_initiated"
	OpCodeReceived    = "code_received"
	OpPaymentVerified = "payment_verified"
	OpStatusReported  = "status_reported"
	OpDeleted         = "deleted"
)

type ShipmentUpdated struct {
	TrackingID string    `json:"tracking_id"`
	Op         string    `json:"op"`
	Status     string    `json:"status,omitempty"`
	Bucket     string    `json:"bucket,omitempty"`
	FeeState   string    `json:"fee_state,omitempty"`
	Events     int       `json:"events"`
	UpdatedAt  time.Time `json:"updated_at"`
}
