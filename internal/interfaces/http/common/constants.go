package common

const (
	// MaxWebhookRequestBody limits the encrypted webhook body.
	MaxWebhookRequestBody = 1 << 20
)
