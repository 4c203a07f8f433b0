package notification

// NoticeType identifies what a notice is about
type NoticeType string

const (
	NoticePasswordReset     NoticeType = "password_reset"
	NoticeEmailConfirmation NoticeType = "email_confirmation"
)

// NoticeTemplate holds the renderable parts of a notice. Text and Html are
// Go template sources executed against NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData carries the recipient and per-send template values
type NotificationData struct {
	To   string
	Data map[string]string
}

// Notifier delivers a rendered notice over one channel
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
