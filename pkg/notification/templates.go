package notification

// Default templates for the notices the auth flows send. The {{.link}} value
// is filled in per send.
var (
	PasswordResetTemplate = NoticeTemplate{
		Subject: "Reset your password",
		Text:    "We received a request to reset your password.\n\nOpen this link to choose a new one: {{.link}}\n\nIf you did not request a reset, you can ignore this email.",
		Html:    `<p>We received a request to reset your password.</p><p><a href="{{.link}}">Choose a new password</a></p><p>If you did not request a reset, you can ignore this email.</p>`,
	}

	EmailConfirmationTemplate = NoticeTemplate{
		Subject: "Confirm your email address",
		Text:    "Welcome! Please confirm your email address.\n\nOpen this link to confirm: {{.link}}",
		Html:    `<p>Welcome! Please confirm your email address.</p><p><a href="{{.link}}">Confirm email</a></p>`,
	}
)

// NewDefaultManager creates a manager with the standard auth notice
// templates registered
func NewDefaultManager(notifier Notifier) (*Manager, error) {
	manager := NewManager(notifier)
	if err := manager.RegisterTemplate(NoticePasswordReset, PasswordResetTemplate); err != nil {
		return nil, err
	}
	if err := manager.RegisterTemplate(NoticeEmailConfirmation, EmailConfirmationTemplate); err != nil {
		return nil, err
	}
	return manager, nil
}
