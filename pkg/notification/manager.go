package notification

import (
	"errors"
	"fmt"
	"log/slog"

	errs "github.com/tendant/simple-auth/pkg/errors"
)

// Manager routes notices to a registered notifier by notice type. Templates
// are registered once at startup; Send looks up the template for the type
// and hands it to the notifier.
type Manager struct {
	notifier  Notifier
	templates map[NoticeType]NoticeTemplate
}

// NewManager creates a notification manager around a notifier
func NewManager(notifier Notifier) *Manager {
	return &Manager{
		notifier:  notifier,
		templates: make(map[NoticeType]NoticeTemplate),
	}
}

// RegisterTemplate adds or replaces the template for a notice type
func (m *Manager) RegisterTemplate(noticeType NoticeType, template NoticeTemplate) error {
	if noticeType == "" {
		return fmt.Errorf("notice type cannot be empty")
	}
	if template.Text == "" && template.Html == "" {
		return fmt.Errorf("template for %s has no body", noticeType)
	}
	m.templates[noticeType] = template
	return nil
}

// Send delivers a notice of the given type
func (m *Manager) Send(noticeType NoticeType, notification NotificationData) error {
	template, exists := m.templates[noticeType]
	if !exists {
		return fmt.Errorf("no template registered for notice type: %s", noticeType)
	}

	if err := m.notifier.Send(noticeType, notification, template); err != nil {
		slog.Error("Failed to send notice", "type", noticeType, "err", err)
		var structured *errs.Error
		if errors.As(err, &structured) {
			return err
		}
		return errs.Wrap(err, errs.ErrCodeEmailDelivery, "failed to deliver notice")
	}
	return nil
}
