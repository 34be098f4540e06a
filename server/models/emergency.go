package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	SOS_EMERGENCY              = "SOS"
	MEDICAL_EMERGENCY          = "Medical"
	FIRE_EMERGENCY             = "Fire"
	POLICE_EMERGENCY           = "Police"
	NATURAL_DISASTER_EMERGENCY = "Natural Disaster"
	OTHER_EMERGENCY            = "Other"

	LOW_PRIORITY      = "Low"
	MEDIUM_PRIORITY   = "Medium"
	HIGH_PRIORITY     = "High"
	CRITICAL_PRIORITY = "Critical"
)

var EmergencyTypeNameMap = map[string]bool{
	SOS_EMERGENCY:              true,
	MEDICAL_EMERGENCY:          true,
	FIRE_EMERGENCY:             true,
	POLICE_EMERGENCY:           true,
	NATURAL_DISASTER_EMERGENCY: true,
	OTHER_EMERGENCY:            true,
}

type Emergency struct {
	BaseModel
	Type                 string                `json:"type" gorm:"not null;default:SOS"`
	Priority             string                `json:"priority" gorm:"not null;default:High"`
	Latitude             float64               `json:"latitude" gorm:"not null"`
	Longitude            float64               `json:"longitude" gorm:"not null"`
	Address              string                `json:"address"`
	Accuracy             float64               `json:"accuracy"`
	Description          string                `json:"description,omitempty"`
	ResolvedAt           *time.Time            `json:"resolved_at,omitempty"`
	ResolvedBy           *uint                 `json:"resolved_by,omitempty"`
	EscalatedAt          *time.Time            `json:"escalated_at,omitempty"`
	UserID               uint                  `json:"user_id" gorm:"not null"`
	EmergencyStatusID    uint                  `json:"-"`
	EmergencyStatus      *EmergencyStatus      `json:"status,omitempty"`
	ContactNotifications []ContactNotification `json:"contacts_notified,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	LocationHistory      []LocationPoint       `json:"location_history,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Notes                []Note                `json:"notes,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

type LocationPoint struct {
	BaseModel
	EmergencyID uint    `json:"-" gorm:"not null"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Accuracy    float64 `json:"accuracy"`
}

type Note struct {
	BaseModel
	EmergencyID uint   `json:"-" gorm:"not null"`
	Content     string `json:"content"`
	CreatedBy   uint   `json:"created_by"`
}

// PriorityForType derives an emergency's priority from its type
func PriorityForType(emergencyType string) string {
	if emergencyType == MEDICAL_EMERGENCY {
		return CRITICAL_PRIORITY
	}
	return HIGH_PRIORITY
}

// CreateEmergency persists a new emergency with status 'Active'
func CreateEmergency(emergency *Emergency) error {
	activeStatus, err := FindEmergencyStatus(ACTIVE_EMERGENCY)
	if err != nil {
		return err
	}

	if emergency.Type == "" {
		emergency.Type = SOS_EMERGENCY
	}
	emergency.Priority = PriorityForType(emergency.Type)
	emergency.EmergencyStatusID = activeStatus.ID
	emergency.EmergencyStatus = activeStatus

	return db.Create(emergency).Error
}

// Update writes the given columns by primary key. Updating via the
// loaded record would re-save its preloaded EmergencyStatus association
// and clobber emergency_status_id with the stale value.
func (emergency *Emergency) Update(data map[string]interface{}) error {
	return db.Model(&Emergency{}).Where("id = ?", emergency.ID).Updates(data).Error
}

// SetStatus transitions the emergency to the given status. Terminal
// statuses(Resolved/Cancelled) stamp resolved_at & resolved_by;
// the others clear them.
func (emergency *Emergency) SetStatus(statusName string, resolvedBy uint) error {
	status, err := FindEmergencyStatus(statusName)
	if err != nil {
		return err
	}

	var resolvedAt *time.Time
	var resolvedByID *uint
	if TerminalEmergencyStatuses[statusName] {
		now := time.Now()
		resolvedAt = &now
		resolvedByID = &resolvedBy
	}

	err = emergency.Update(map[string]interface{}{
		"emergency_status_id": status.ID,
		"resolved_at":         resolvedAt,
		"resolved_by":         resolvedByID,
	})
	if err != nil {
		return err
	}

	emergency.EmergencyStatus = status
	emergency.EmergencyStatusID = status.ID
	emergency.ResolvedAt = resolvedAt
	emergency.ResolvedBy = resolvedByID
	return nil
}

func (emergency *Emergency) IsActive() (bool, error) {
	activeStatus, err := FindEmergencyStatus(ACTIVE_EMERGENCY)
	if err != nil {
		return false, err
	}

	return emergency.EmergencyStatusID == activeStatus.ID, nil
}

// AddLocationPoint appends to the emergency's location history and
// overwrites its current location
func (emergency *Emergency) AddLocationPoint(latitude, longitude, accuracy float64) error {
	point := LocationPoint{
		EmergencyID: emergency.ID,
		Latitude:    latitude,
		Longitude:   longitude,
		Accuracy:    accuracy,
	}
	if err := db.Create(&point).Error; err != nil {
		return err
	}

	err := emergency.Update(map[string]interface{}{
		"latitude":  latitude,
		"longitude": longitude,
		"accuracy":  accuracy,
	})
	if err != nil {
		return err
	}

	emergency.Latitude = latitude
	emergency.Longitude = longitude
	emergency.Accuracy = accuracy
	return nil
}

func (emergency *Emergency) AddNote(content string, createdBy uint) error {
	return db.Create(&Note{
		EmergencyID: emergency.ID,
		Content:     content,
		CreatedBy:   createdBy,
	}).Error
}

// RecordNotification appends one delivery record for a contact
func (emergency *Emergency) RecordNotification(contactID uint, method, status string) error {
	return db.Create(&ContactNotification{
		EmergencyID: emergency.ID,
		ContactID:   contactID,
		Method:      method,
		Status:      status,
		NotifiedAt:  time.Now(),
	}).Error
}

func (emergency *Emergency) NotifiedCount() (int64, error) {
	var count int64
	err := db.Model(&ContactNotification{}).
		Where("emergency_id = ?", emergency.ID).Count(&count).Error

	return count, err
}

func FindEmergencyForUser(id, userID interface{}) (*Emergency, error) {
	emergency := Emergency{}
	err := db.Preload("EmergencyStatus").
		Preload("ContactNotifications").Preload("ContactNotifications.Contact").
		Preload("LocationHistory").Preload("Notes").
		First(&emergency, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, err
	}

	return &emergency, nil
}

// FindActiveEmergencyForUser returns the emergency only if it's
// still in 'Active' status
func FindActiveEmergencyForUser(id, userID interface{}) (*Emergency, error) {
	activeStatus, err := FindEmergencyStatus(ACTIVE_EMERGENCY)
	if err != nil {
		return nil, err
	}

	emergency := Emergency{}
	err = db.Preload("EmergencyStatus").
		First(&emergency, "id = ? AND user_id = ? AND emergency_status_id = ?",
			id, userID, activeStatus.ID).Error
	if err != nil {
		return nil, err
	}

	return &emergency, nil
}

// LastActiveEmergencySince returns the user's most recent active
// emergency created after 'since', or nil if there's none. Used as the
// duplicate-trigger guard for rapid double-taps.
func LastActiveEmergencySince(userID uint, since time.Time) (*Emergency, error) {
	activeStatus, err := FindEmergencyStatus(ACTIVE_EMERGENCY)
	if err != nil {
		return nil, err
	}

	emergency := Emergency{}
	err = db.Preload("EmergencyStatus").
		Where("user_id = ? AND emergency_status_id = ? AND created_at > ?",
			userID, activeStatus.ID, since).
		Last(&emergency).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &emergency, nil
}

// FetchEmergencies returns a page of the user's emergencies, newest first
func FetchEmergencies(userID interface{}, page, pageSize int) ([]Emergency, *Paging, error) {
	var total int64
	emergencies := []Emergency{}

	err := db.Model(&Emergency{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, pageSize)).
		Preload("EmergencyStatus").Preload("ContactNotifications").
		Order("emergencies.id desc").
		Find(&emergencies, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	if pageSize <= 0 {
		pageSize = DEFAULT_PAGE_SIZE
	}
	return emergencies, newPaging(int64(page), int64(pageSize), total), nil
}

// StaleActiveEmergencies returns emergencies that have been 'Active'
// since before 'cutoff' and haven't been escalated yet
func StaleActiveEmergencies(cutoff time.Time) ([]Emergency, error) {
	activeStatus, err := FindEmergencyStatus(ACTIVE_EMERGENCY)
	if err != nil {
		return nil, err
	}

	emergencies := []Emergency{}
	err = db.Where(
		"emergency_status_id = ? AND created_at < ? AND escalated_at IS NULL",
		activeStatus.ID, cutoff,
	).Find(&emergencies).Error
	if err != nil {
		return nil, err
	}

	return emergencies, nil
}
