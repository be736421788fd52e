// Package notification routes shipment events to role-targeted,
// template-based notifications. It persists every notification to an
// append-only JSONL log and fans delivery out to SMTP and webhook
// channels, statically configured at startup rather than read from a
// database-backed settings table.
package notification

import "context"

// SMTPConfig holds the configuration needed to send notification emails.
// Zero value means SMTP delivery is disabled.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string // single operations mailbox; this system has no per-user email directory
	TLS      bool   // true = implicit TLS (SMTPS); false = plaintext/STARTTLS
}

// Enabled reports whether cfg carries enough information to attempt delivery.
func (cfg SMTPConfig) Enabled() bool {
	return cfg.Host != "" && cfg.Port != 0 && cfg.From != "" && cfg.To != ""
}

// WebhookConfig holds the configuration for the outbound HTTP webhook channel.
type WebhookConfig struct {
	URL     string
	Secret  string // optional HMAC-SHA256 signing secret
	Enabled bool
}

// staticSMTPLoader closes over a fixed SMTPConfig, matching the
// loader(ctx) (*SMTPConfig, error) shape the email sender expects.
func staticSMTPLoader(cfg SMTPConfig) func(context.Context) (*SMTPConfig, error) {
	return func(context.Context) (*SMTPConfig, error) {
		if !cfg.Enabled() {
			return nil, ErrConfigNotFound
		}
		return &cfg, nil
	}
}

// staticWebhookLoader closes over a fixed WebhookConfig.
func staticWebhookLoader(cfg WebhookConfig) func(context.Context) (*WebhookConfig, error) {
	return func(context.Context) (*WebhookConfig, error) {
		if !cfg.Enabled || cfg.URL == "" {
			return nil, ErrConfigNotFound
		}
		return &cfg, nil
	}
}

// NewEmailSender builds the EmailSender used by Dispatcher, statically
// configured from cfg.
func NewEmailSender(cfg SMTPConfig) EmailSender {
	return newEmailSender(staticSMTPLoader(cfg))
}

// NewWebhookSender builds the WebhookSender used by Dispatcher, statically
// configured from cfg.
func NewWebhookSender(cfg WebhookConfig) WebhookSender {
	return newWebhookSender(staticWebhookLoader(cfg))
}
