package middlewares

const (
	CtxRequestID   = "request_id"
	CtxRequestedAt = "requested_at"
)
