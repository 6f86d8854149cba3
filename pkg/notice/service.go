package notice

import (
	"embed"
	"log/slog"

	"github.com/depothub/traindepot/pkg/notification"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager builds a manager with the email notifier and all
// notice templates registered.
func NewNotificationManager(baseUrl string, smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager(baseUrl)

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}

	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	err = notificationManager.RegisterNotification(notification.RegisterConfirmationNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Welcome to traindepot",
		Html:    loadTemplate("templates/email/register_confirmation.html"),
	})
	if err != nil {
		return nil, err
	}

	err = notificationManager.RegisterNotification(notification.PasswordResetInitNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Password Reset Request",
		Html:    loadTemplate("templates/email/password_reset_init.html"),
	})
	if err != nil {
		return nil, err
	}

	err = notificationManager.RegisterNotification(notification.PasswordResetConfirmNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Your password was changed",
		Html:    loadTemplate("templates/email/password_reset_confirm.html"),
	})
	if err != nil {
		return nil, err
	}

	return notificationManager, nil
}
