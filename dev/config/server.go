package config

// SERVER_YML is the default dev server config. An empty privateKeyPem
// makes the server generate an ephemeral signing key on boot.
const SERVER_YML = `
safepath:
  privateKeyPem:
  cron:
    timeZone: "America/Toronto"
  listener:
    port: 3000
  escalation:
    checkSchedule: "*/5 * * * *"
    renotifyAfterMinutes: 15

sqlite:
  passPhrase: passphrase

google:
  storage:
    bucket: "safepath"
    prefix: "safepath-dev"
    sqliteBackupSchedule: "*/30 * * * *"
    enableSqliteBackupAndSync: false
  applicationCredentials:
  mapsApiKey:

twilio:
  accountSid:
  authToken:
  messagingServiceSid:

mailer:
  apiUrl: "https://api.brevo.com/v3/smtp/email"
  apiKey:
  senderEmail: "alerts@safepath.dev"
  senderName: "SafePath"

gemini:
  apiKey:
  model: "gemini-1.5-flash"
`
