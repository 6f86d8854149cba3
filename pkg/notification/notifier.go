package notification

// NotificationSystem represents a delivery channel (e.g., email, SMS).
type NotificationSystem string

// NoticeType identifies a kind of notice sent to users.
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"
)

const (
	// RegisterConfirmationNotice is sent after successful registration
	RegisterConfirmationNotice NoticeType = "register_confirmation"
	// PasswordResetInitNotice carries the reset link
	PasswordResetInitNotice NoticeType = "password_reset_init"
	// PasswordResetConfirmNotice is sent after a completed reset
	PasswordResetConfirmNotice NoticeType = "password_reset_confirm"
)

// NotificationData is the per-send payload
type NotificationData struct {
	To   string            // Recipient identifier (e.g., email address)
	Data map[string]string // Template variables
}

// NoticeTemplate holds the renderable content for a notice
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notice over one system
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
