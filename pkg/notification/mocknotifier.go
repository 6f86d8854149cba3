package notification

// MockNotifier records sent notifications for tests.
type MockNotifier struct {
	SentNotifications []SentNotification
}

type SentNotification struct {
	NoticeType NoticeType
	Data       NotificationData
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.SentNotifications = append(m.SentNotifications, SentNotification{
		NoticeType: noticeType,
		Data:       notification,
	})
	return nil
}

// Sent returns the notifications recorded for a notice type.
func (m *MockNotifier) Sent(noticeType NoticeType) []NotificationData {
	var out []NotificationData
	for _, s := range m.SentNotifications {
		if s.NoticeType == noticeType {
			out = append(out, s.Data)
		}
	}
	return out
}
