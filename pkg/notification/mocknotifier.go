package notification

import "sync"

// SentNotice records one delivery made through a MockNotifier
type SentNotice struct {
	Type         NoticeType
	Notification NotificationData
	Template     NoticeTemplate
}

// MockNotifier records notices instead of delivering them, used by tests
type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentNotice
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Sent = append(m.Sent, SentNotice{
		Type:         noticeType,
		Notification: notification,
		Template:     template,
	})
	return nil
}

// LastTo returns the recipient of the most recent notice, or empty
func (m *MockNotifier) LastTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return ""
	}
	return m.Sent[len(m.Sent)-1].Notification.To
}
