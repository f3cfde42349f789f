package notification

import (
	"time"
)

// Notification types
const (
	TypeRegistrationConfirmed  = "registration_confirmed"
	TypeRegistrationWaitlisted = "registration_waitlisted"
	TypeRegistrationCancelled  = "registration_cancelled"
	TypeWaitlistPromoted       = "waitlist_promoted"
	TypeEventCancelled         = "event_cancelled"
	TypeEventUpdated           = "event_updated"
	TypeAnnouncement           = "announcement"
)

// Delivery channels
const (
	ChannelRealtime = "realtime"
	ChannelEmail    = "email"
)

// Delivery statuses
const (
	DeliveryPending    = "pending"
	DeliveryProcessing = "processing" // claimed by a worker until its lease expires
	DeliveryDelivered  = "delivered"
	DeliveryFailed     = "failed"
)

var AllTypes = []string{
	TypeRegistrationConfirmed,
	TypeRegistrationWaitlisted,
	TypeRegistrationCancelled,
	TypeWaitlistPromoted,
	TypeEventCancelled,
	TypeEventUpdated,
	TypeAnnouncement,
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id"` // event ID, if any
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNotification is what producers hand to a Notifier.
type NewNotification struct {
	UserID    string
	Type      string
	Title     string
	Message   string
	RelatedID string
}

// Delivery is one pending send of a Notification through one channel (outbox row).
type Delivery struct {
	ID             string
	NotificationID string
	Channel        string
	Status         string
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Notification is loaded along with claimed deliveries.
	Notification Notification
}

type ListFilter struct {
	UnreadOnly bool `query:"unread"`
	Limit      int  `query:"limit"`
}

func (lf *ListFilter) Clean() {
	if lf.Limit <= 0 || lf.Limit > maxListLimit {
		lf.Limit = maxListLimit
	}
}

const maxListLimit = 100
