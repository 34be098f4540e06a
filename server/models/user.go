package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/Tushar2604/SafePath/server/auth"
	"gorm.io/gorm"
)

const UNKNOWN_BLOOD_TYPE = "Unknown"

var BloodTypeNameMap = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
	UNKNOWN_BLOOD_TYPE: true,
}

var (
	allFieldsExceptPassword = []string{"id",
		"first_name",
		"last_name",
		"phone_number",
		"email",
		"profile_image",
		"blood_type",
		"allergies",
		"medications",
		"medical_conditions",
		"medical_notes",
		"notifications_enabled",
		"location_enabled",
		"emergency_mode_enabled",
		"auto_call_enabled",
		"last_latitude",
		"last_longitude",
		"last_accuracy",
		"last_located_at",
		"last_seen_at",
		"active",
		"role_id",
		"created_at",
		"updated_at",
	}

	updatableUserFields = []string{"first_name",
		"last_name",
		"phone_number",
		"password",
		"profile_image",
		"blood_type",
		"allergies",
		"medications",
		"medical_conditions",
		"medical_notes",
		"notifications_enabled",
		"location_enabled",
		"emergency_mode_enabled",
		"auto_call_enabled",
	}
)

type User struct {
	BaseModel
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required,e164" gorm:"not null;unique"`
	Email       string `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password    string `json:"password,omitempty" validate:"required,password" gorm:"not null"`

	ProfileImage string `json:"profile_image,omitempty"`

	// Medical info shared with responders during an emergency
	BloodType         string `json:"blood_type" validate:"omitempty,blood_type" gorm:"default:Unknown"`
	Allergies         string `json:"allergies,omitempty"`
	Medications       string `json:"medications,omitempty"`
	MedicalConditions string `json:"medical_conditions,omitempty"`
	MedicalNotes      string `json:"medical_notes,omitempty"`

	NotificationsEnabled bool `json:"notifications_enabled" gorm:"default:true"`
	LocationEnabled      bool `json:"location_enabled" gorm:"default:true"`
	EmergencyModeEnabled bool `json:"emergency_mode_enabled"`
	AutoCallEnabled      bool `json:"auto_call_enabled"`

	LastLatitude  float64    `json:"last_latitude,omitempty"`
	LastLongitude float64    `json:"last_longitude,omitempty"`
	LastAccuracy  float64    `json:"last_accuracy,omitempty"`
	LastLocatedAt *time.Time `json:"last_located_at,omitempty"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`

	Active bool `json:"active" gorm:"default:true"`
	RoleID uint `json:"role_id" gorm:"null"`

	Contacts     []Contact     `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Emergencies  []Emergency   `json:"emergencies,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	DeviceTokens []DeviceToken `json:"device_tokens,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Name returns the user's full display name
func (user *User) Name() string {
	return fmt.Sprintf("%v %v", user.FirstName, user.LastName)
}

func (user *User) Update(data map[string]interface{}) error {
	if data["password"] != nil {
		passwordHash, err := auth.HashPassword(data["password"].(string))
		if err != nil {
			return err
		}
		data["password"] = passwordHash
	}

	return db.Model(&User{}).Where("id = ?", user.ID).
		Select(updatableUserFields).Updates(data).Error
}

func (user *User) IsAdmin() (bool, error) {
	if user.RoleID == 0 {
		return false, nil
	}

	adminRole, err := FindRole(ADMIN_USER_ROLE)
	if err != nil {
		return false, err
	}

	return adminRole.ID == user.RoleID, nil
}

// ---------------------------------------------------------------------------------//
// Contacts
// --------------------------------------------------------------------------------//

func (user *User) AddContact(contact *Contact) error {
	contact.UserID = user.ID
	contact.Active = true
	return db.Create(contact).Error
}

// ActiveContacts returns the user's non-deleted contacts, primary first
func (user *User) ActiveContacts() ([]Contact, error) {
	contacts := []Contact{}
	err := db.Order("is_primary desc, created_at desc").
		Limit(MAX_CONTACTS_PER_USER).
		Find(&contacts, "user_id = ? AND active = ?", user.ID, true).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func (user *User) ActiveContactCount() (int64, error) {
	var count int64
	err := db.Model(&Contact{}).
		Where("user_id = ? AND active = ?", user.ID, true).Count(&count).Error

	return count, err
}

// HasContactWithPhoneNumber reports whether another active contact of
// the user already uses 'phoneNumber'
func (user *User) HasContactWithPhoneNumber(phoneNumber string, excludeID uint) (bool, error) {
	var count int64
	err := db.Model(&Contact{}).
		Where("user_id = ? AND phone_number = ? AND active = ? AND id != ?",
			user.ID, phoneNumber, true, excludeID).
		Count(&count).Error

	return count > 0, err
}

func (user *User) UpdateContact(contactID string, data map[string]interface{}) error {
	// Updating via map skips gorm hooks, so the single-primary
	// invariant is kept here explicitly
	if isPrimary, ok := data["is_primary"].(bool); ok && isPrimary {
		err := db.Model(&Contact{}).
			Where("user_id = ? AND id != ?", user.ID, contactID).
			Update("is_primary", false).Error
		if err != nil {
			return err
		}
	}

	return db.Table("contacts").
		Where("id = ? AND user_id = ?", contactID, user.ID).Updates(data).Error
}

// DeleteContact soft-deletes the contact; it disappears from list &
// notify operations but its delivery history is kept
func (user *User) DeleteContact(id interface{}) error {
	return db.Model(&Contact{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Updates(map[string]interface{}{"active": false, "is_primary": false}).Error
}

// PrimaryContact returns the user's primary contact, or the most
// recently added active contact when no primary is set
func (user *User) PrimaryContact() (*Contact, error) {
	contact := Contact{}
	err := db.Order("is_primary desc, created_at desc").
		First(&contact, "user_id = ? AND active = ?", user.ID, true).Error
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

// ---------------------------------------------------------------------------------//
// Location & devices
// --------------------------------------------------------------------------------//

func (user *User) UpdateLastLocation(latitude, longitude, accuracy float64) error {
	now := time.Now()
	return db.Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"last_latitude":   latitude,
		"last_longitude":  longitude,
		"last_accuracy":   accuracy,
		"last_located_at": &now,
	}).Error
}

func (user *User) UpdateLastSeen() error {
	now := time.Now()
	return db.Model(&User{}).Where("id = ?", user.ID).
		Update("last_seen_at", &now).Error
}

// AddDeviceToken registers a push token, replacing any previous row
// with the same token value
func (user *User) AddDeviceToken(token, platform string) error {
	existing := DeviceToken{}
	err := db.First(&existing, "user_id = ? AND token = ?", user.ID, token).Error
	if err == nil {
		return db.Model(&existing).Update("platform", platform).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.Create(&DeviceToken{Token: token, Platform: platform, UserID: user.ID}).Error
}

func (user *User) DeviceTokenStrings() ([]string, error) {
	deviceTokens := []DeviceToken{}
	err := db.Find(&deviceTokens, "user_id = ?", user.ID).Error
	if err != nil {
		return nil, err
	}

	tokens := []string{}
	for _, deviceToken := range deviceTokens {
		tokens = append(tokens, deviceToken.Token)
	}

	return tokens, nil
}

// ---------------------------------------------------------------------------------//
// Package functions
// --------------------------------------------------------------------------------//

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(allFieldsExceptPassword).
		First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func FindUserPassword(email string) (string, error) {
	user := &User{}
	err := db.Select("ID", "Password").First(user, "email = ? AND active = ?", email, true).Error
	if err != nil {
		return "", err
	}

	return user.Password, nil
}

func CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	if user.BloodType == "" {
		user.BloodType = UNKNOWN_BLOOD_TYPE
	}
	user.Active = true
	user.NotificationsEnabled = true
	user.LocationEnabled = true

	return db.Create(user).Error
}

func DeleteUser(id interface{}) error {
	return db.Delete(&User{}, id).Error
}

func AtLeastOneUserExists() (bool, error) {
	err := db.First(&User{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
