package model

// All lists every persisted model, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Subscription{},
		&ChatLink{},
		&ChatLinkToken{},
		&Prediction{},
		&PaymentEvent{},
	}
}
