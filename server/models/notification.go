package models

import "time"

const (
	SMS_METHOD   = "SMS"
	EMAIL_METHOD = "Email"
	PUSH_METHOD  = "Push"
	CALL_METHOD  = "Call"

	SENT_NOTIFICATION   = "Sent"
	FAILED_NOTIFICATION = "Failed"
)

// ContactNotification records one delivery attempt made to an
// emergency contact during an alert or status-update fan-out
type ContactNotification struct {
	BaseModel
	EmergencyID uint      `json:"-" gorm:"not null"`
	ContactID   uint      `json:"contact_id" gorm:"not null"`
	Contact     *Contact  `json:"contact,omitempty"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	NotifiedAt  time.Time `json:"notified_at"`
}
