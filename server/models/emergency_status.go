package models

const (
	ACTIVE_EMERGENCY      = "Active"
	RESOLVED_EMERGENCY    = "Resolved"
	CANCELLED_EMERGENCY   = "Cancelled"
	FALSE_ALARM_EMERGENCY = "False Alarm"
)

var EmergencyStatusNameMap = map[string]bool{
	ACTIVE_EMERGENCY:      true,
	RESOLVED_EMERGENCY:    true,
	CANCELLED_EMERGENCY:   true,
	FALSE_ALARM_EMERGENCY: true,
}

// TerminalEmergencyStatuses are the statuses that close out an
// emergency & stamp resolved_at/resolved_by
var TerminalEmergencyStatuses = map[string]bool{
	RESOLVED_EMERGENCY:  true,
	CANCELLED_EMERGENCY: true,
}

type EmergencyStats struct {
	ActiveEmergencyCount     int64 `json:"active_emergency_count"`
	ResolvedEmergencyCount   int64 `json:"resolved_emergency_count"`
	CancelledEmergencyCount  int64 `json:"cancelled_emergency_count"`
	FalseAlarmEmergencyCount int64 `json:"false_alarm_emergency_count"`
}

type EmergencyStatus struct {
	BaseModel
	Name        string      `json:"name"`
	Emergencies []Emergency `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func FindEmergencyStatus(name string) (*EmergencyStatus, error) {
	emergencyStatus := EmergencyStatus{}
	err := db.Select("id", "name").First(&emergencyStatus, "name = ?", name).Error
	if err != nil {
		return nil, err
	}

	return &emergencyStatus, nil
}

// CurrentEmergencyStats returns how many emergencies are in each status
func CurrentEmergencyStats() (*EmergencyStats, error) {
	stats := EmergencyStats{}

	statusToDestMap := map[string]*int64{
		ACTIVE_EMERGENCY:      &stats.ActiveEmergencyCount,
		RESOLVED_EMERGENCY:    &stats.ResolvedEmergencyCount,
		CANCELLED_EMERGENCY:   &stats.CancelledEmergencyCount,
		FALSE_ALARM_EMERGENCY: &stats.FalseAlarmEmergencyCount,
	}

	for statusName, dest := range statusToDestMap {
		status, err := FindEmergencyStatus(statusName)
		if err != nil {
			return nil, err
		}

		err = db.Model(&Emergency{}).
			Where("emergency_status_id = ?", status.ID).Count(dest).Error
		if err != nil {
			return nil, err
		}
	}

	return &stats, nil
}
