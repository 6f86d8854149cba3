package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndSend(t *testing.T) {
	manager := NewNotificationManager("http://localhost:3000")
	mock := &MockNotifier{}
	manager.RegisterNotifier(EmailSystem, mock)

	err := manager.RegisterNotification(PasswordResetInitNotice, EmailSystem, NoticeTemplate{
		Subject: "Password Reset Request",
		Html:    "<a href=\"{{.Link}}\">Reset</a>",
	})
	require.NoError(t, err)

	err = manager.Send(PasswordResetInitNotice, NotificationData{
		To:   "a@x.com",
		Data: map[string]string{"Link": "http://localhost:3000/reset-password/abc"},
	})
	require.NoError(t, err)

	sent := mock.Sent(PasswordResetInitNotice)
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].To)
}

func TestSendUnregisteredNotice(t *testing.T) {
	manager := NewNotificationManager("")

	err := manager.Send(RegisterConfirmationNotice, NotificationData{To: "a@x.com"})
	assert.Error(t, err)
}

func TestRegisterNotificationValidation(t *testing.T) {
	manager := NewNotificationManager("")

	err := manager.RegisterNotification("", EmailSystem, NoticeTemplate{Subject: "x"})
	assert.Error(t, err)

	err = manager.RegisterNotification(RegisterConfirmationNotice, EmailSystem, NoticeTemplate{})
	assert.Error(t, err)
}

func TestSendWithoutNotifier(t *testing.T) {
	manager := NewNotificationManager("")

	err := manager.RegisterNotification(RegisterConfirmationNotice, EmailSystem, NoticeTemplate{
		Subject: "Welcome",
		Text:    "Welcome aboard",
	})
	require.NoError(t, err)

	err = manager.Send(RegisterConfirmationNotice, NotificationData{To: "a@x.com"})
	assert.Error(t, err)
}
