package models

const DefaultFeeReason = "Customs and Taxes"

// FeeState — стадия эскроу, вычисляемая из полей Fee.
type FeeState string

const (
	FeeStateNone         FeeState = "none"
	FeeStateAssessed     FeeState = "assessed"
	FeeStateInitiated    FeeState = "initiated"
	FeeStateCodeReceived FeeState = "code_received"
	FeeStatePaid         FeeState = "paid"
)

type Fee struct {
	Amount           *float64 `json:"amount"`
	Reason           string   `json:"reason"`
	Paid             bool     `json:"paid"`
	PaymentSubmitted bool     `json:"payment_submitted"`

	PaymentMethod    string `json:"payment_method,omitempty"`
	PayerEmail       string `json:"payer_email,omitempty"`
	InitCode         string `json:"init_code,omitempty"`
	InitCodeReceived bool   `json:"init_code_received,omitempty"`
	InitiatedAt      string `json:"initiated_at,omitempty"`
}
