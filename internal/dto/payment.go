package dto

const PaymentStatusPaid = "paid"

// PaymentWebhookRequest is the body the payment gateway posts after checkout.
type PaymentWebhookRequest struct {
	EventID  string `json:"event_id" validate:"required,max=128"`
	UserID   uint   `json:"user_id" validate:"required"`
	Amount   int64  `json:"amount" validate:"gte=0"`
	Currency string `json:"currency" validate:"required,len=3"`
	Status   string `json:"status" validate:"required"`
}

// PaymentConfirmation is a verified "payment completed for user X" event.
type PaymentConfirmation struct {
	EventID  string
	UserID   uint
	Source   string
	Amount   int64
	Currency string
}
