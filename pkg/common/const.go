package common

const (
	KEY_MARKET_DATA_PREFIX = "market_data:"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)

const (
	PAYMENT_SOURCE_WEB      = "web"
	PAYMENT_SOURCE_TELEGRAM = "telegram"
)

const (
	CONTEXT_KEY_USER = "user"
)
