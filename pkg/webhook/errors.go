package webhook

import "errors"

// Trigger errors. They are raised before any execution record exists.
var (
	ErrTriggerNotFound  = errors.New("webhook trigger not found")
	ErrTriggerInactive  = errors.New("webhook trigger is inactive")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrPayloadSchema    = errors.New("payload does not match trigger schema")
	ErrInvalidSchema    = errors.New("invalid json schema")
)
