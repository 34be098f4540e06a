package shared

type ServerConfig struct {
	Sqlite   SqliteConfig   `mapstructure:"sqlite" validate:"required"`
	SafePath SafePathConfig `mapstructure:"safepath" validate:"required"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Mailer   MailerConfig   `mapstructure:"mailer"`
	Google   GoogleConfig   `mapstructure:"google"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type SafePathConfig struct {
	// PEM encoded RSA private key used to sign auth tokens. When empty,
	// an ephemeral key pair is generated on boot - dev only, tokens
	// won't survive a restart.
	PrivateKeyPem string           `mapstructure:"privateKeyPem"`
	Cron          CronConfig       `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig   `mapstructure:"listener" validate:"required"`
	Escalation    EscalationConfig `mapstructure:"escalation"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type MailerConfig struct {
	ApiUrl      string `mapstructure:"apiUrl"`
	ApiKey      string `mapstructure:"apiKey"`
	SenderEmail string `mapstructure:"senderEmail"`
	SenderName  string `mapstructure:"senderName"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	MapsApiKey             string        `mapstructure:"mapsApiKey"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type GeminiConfig struct {
	ApiKey string `mapstructure:"apiKey"`
	Model  string `mapstructure:"model"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type EscalationConfig struct {
	// Cron expression for how often stale active emergencies are checked
	CheckSchedule string `mapstructure:"checkSchedule"`
	// How long an emergency can stay 'Active' before the primary
	// contact is re-notified
	RenotifyAfterMinutes int `mapstructure:"renotifyAfterMinutes"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync" validate:"omitempty,bool"`
}
