package notification

import "errors"

// Sentinel errors returned by the notification dispatcher and its senders.
// Callers should use errors.Is for comparison.
var (
	// ErrSendFailed is returned when a notification could not be delivered
	// through one or more channels (email, webhook). Returned errors wrap it
	// and carry the underlying cause's message as text (the cause itself is
	// not wrapped). It is non-fatal — the persisted notification survives
	// even if external delivery fails.
	ErrSendFailed = errors.New("notification: send failed")

	// ErrConfigNotFound is returned when a channel has no usable
	// configuration (e.g. SMTP host/port/from/to not all set).
	ErrConfigNotFound = errors.New("notification: configuration not found")

	// ErrInvalidConfig names configuration that is present but malformed.
	// No loader or sender in this package returns it.
	ErrInvalidConfig = errors.New("notification: invalid configuration")

	// ErrTemplateNotFound is returned by getTemplate for an unregistered name.
	ErrTemplateNotFound = errors.New("notification: template not found")
)
