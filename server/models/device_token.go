package models

const (
	IOS_PLATFORM     = "ios"
	ANDROID_PLATFORM = "android"
	WEB_PLATFORM     = "web"
)

var PlatformNameMap = map[string]bool{
	IOS_PLATFORM:     true,
	ANDROID_PLATFORM: true,
	WEB_PLATFORM:     true,
}

// DeviceToken is a push-notification token registered by one of the
// user's devices
type DeviceToken struct {
	BaseModel
	Token    string `json:"token" validate:"required" gorm:"not null"`
	Platform string `json:"platform" validate:"required,platform" gorm:"not null"`
	UserID   uint   `json:"user_id" gorm:"not null"`
}
