package domain

import "time"

type NotificationType string

const (
	NotificationRentNotDetected  NotificationType = "RENT_NOT_DETECTED"
	NotificationRentUnpaid       NotificationType = "RENT_UNPAID"
	NotificationRentCritical     NotificationType = "RENT_CRITICAL"
	NotificationFriendlyReminder NotificationType = "RENT_FRIENDLY_REMINDER"
)

type Notification struct {
	ID        string
	UserID    int64
	Type      NotificationType
	Title     string
	Message   string
	Link      string
	CreatedAt time.Time
}

type Email struct {
	To      string
	Subject string
	Body    string
}
