package models

import "gorm.io/gorm"

// A user can keep at most this many active emergency contacts
const MAX_CONTACTS_PER_USER = 10

const (
	SPOUSE_RELATIONSHIP  = "Spouse"
	PARENT_RELATIONSHIP  = "Parent"
	CHILD_RELATIONSHIP   = "Child"
	SIBLING_RELATIONSHIP = "Sibling"
	FRIEND_RELATIONSHIP  = "Friend"
	DOCTOR_RELATIONSHIP  = "Doctor"
	OTHER_RELATIONSHIP   = "Other"
)

var RelationshipNameMap = map[string]bool{
	SPOUSE_RELATIONSHIP:  true,
	PARENT_RELATIONSHIP:  true,
	CHILD_RELATIONSHIP:   true,
	SIBLING_RELATIONSHIP: true,
	FRIEND_RELATIONSHIP:  true,
	DOCTOR_RELATIONSHIP:  true,
	OTHER_RELATIONSHIP:   true,
}

type Contact struct {
	BaseModel
	FirstName     string                `json:"first_name" validate:"required"`
	LastName      string                `json:"last_name" validate:"required"`
	PhoneNumber   string                `json:"phone_number" validate:"required,e164" gorm:"not null"`
	Email         string                `json:"email" validate:"omitempty,email"`
	Relationship  string                `json:"relationship" validate:"required,relationship"`
	IsPrimary     bool                  `json:"is_primary"`
	Active        bool                  `json:"active" gorm:"default:true"`
	SmsEnabled    bool                  `json:"sms_enabled" gorm:"default:true"`
	EmailEnabled  bool                  `json:"email_enabled"`
	CallEnabled   bool                  `json:"call_enabled"`
	UserID        uint                  `json:"user_id" gorm:"not null"`
	Notifications []ContactNotification `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// BeforeSave keeps the single-primary invariant: saving a primary
// contact clears the flag on every other contact of the same user
func (contact *Contact) BeforeSave(tx *gorm.DB) error {
	if !contact.IsPrimary {
		return nil
	}

	return tx.Model(&Contact{}).
		Where("user_id = ? AND id != ?", contact.UserID, contact.ID).
		Update("is_primary", false).Error
}

func FindContactForUser(id, userID interface{}) (*Contact, error) {
	contact := Contact{}
	err := db.First(&contact, "id = ? AND user_id = ? AND active = ?", id, userID, true).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}
