package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Tushar2604/SafePath/server/logger"
	"github.com/Tushar2604/SafePath/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSMSSender) SendMessage(to, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return f.err
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, toEmail, subject, templateName string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, toEmail)
	return f.err
}

type fakePushSender struct{}

func (f *fakePushSender) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, int, error) {
	return len(tokens), 0, nil
}

func newTestService(sms *fakeSMSSender, email *fakeEmailSender) *Service {
	return NewService(sms, email, &fakePushSender{}, logger.NewLogger())
}

func testUser() *models.User {
	return &models.User{FirstName: "Ada", LastName: "Lovelace"}
}

func testEmergency() *models.Emergency {
	return &models.Emergency{Type: models.MEDICAL_EMERGENCY, Latitude: 43.65, Longitude: -79.38}
}

func TestSendEmergencyAlertHonorsChannelPreferences(t *testing.T) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	service := newTestService(sms, email)

	smsOnly := models.Contact{PhoneNumber: "+12345678901", SmsEnabled: true}
	results := service.SendEmergencyAlert(context.Background(), smsOnly, testUser(), testEmergency())
	require.Len(t, results, 1)
	assert.Equal(t, models.SMS_METHOD, results[0].Method)
	assert.Len(t, sms.sent, 1)
	assert.Empty(t, email.sent)

	both := models.Contact{
		PhoneNumber: "+12345678902", Email: "grace@example.com",
		SmsEnabled: true, EmailEnabled: true,
	}
	results = service.SendEmergencyAlert(context.Background(), both, testUser(), testEmergency())
	assert.Len(t, results, 2)
	assert.Len(t, email.sent, 1)

	// Email pref without an address attempts nothing on that channel
	noAddress := models.Contact{PhoneNumber: "+12345678903", SmsEnabled: true, EmailEnabled: true}
	results = service.SendEmergencyAlert(context.Background(), noAddress, testUser(), testEmergency())
	assert.Len(t, results, 1)
}

func TestFanOutReturnsEntryPerContact(t *testing.T) {
	sms := &fakeSMSSender{err: errors.New("provider down")}
	email := &fakeEmailSender{}
	service := newTestService(sms, email)

	contacts := []models.Contact{
		{BaseModel: models.BaseModel{ID: 1}, PhoneNumber: "+12345678901", SmsEnabled: true},
		{BaseModel: models.BaseModel{ID: 2}, PhoneNumber: "+12345678902", SmsEnabled: true, EmailEnabled: true, Email: "b@example.com"},
		{BaseModel: models.BaseModel{ID: 3}, PhoneNumber: "+12345678903", SmsEnabled: true},
	}

	deliveries := service.FanOut(context.Background(), contacts, testUser(), testEmergency())

	// One failing channel never swallows the other contacts
	require.Len(t, deliveries, len(contacts))
	for i, delivery := range deliveries {
		assert.Equal(t, contacts[i].ID, delivery.Contact.ID)
		assert.NotEmpty(t, delivery.Results)
	}

	// Contact 2 still got their email even though SMS failed
	assert.True(t, HasSuccess(deliveries[1].Results))
	assert.False(t, HasSuccess(deliveries[0].Results))
}

func TestDeliveredMethod(t *testing.T) {
	method, status := DeliveredMethod([]ChannelResult{
		{Method: models.SMS_METHOD, Err: errors.New("nope")},
		{Method: models.EMAIL_METHOD},
	})
	assert.Equal(t, models.EMAIL_METHOD, method)
	assert.Equal(t, models.SENT_NOTIFICATION, status)

	method, status = DeliveredMethod([]ChannelResult{
		{Method: models.SMS_METHOD, Err: errors.New("nope")},
		{Method: models.EMAIL_METHOD, Err: errors.New("also nope")},
	})
	assert.Equal(t, models.SMS_METHOD, method)
	assert.Equal(t, models.FAILED_NOTIFICATION, status)

	method, status = DeliveredMethod(nil)
	assert.Equal(t, models.SMS_METHOD, method)
	assert.Equal(t, models.FAILED_NOTIFICATION, status)
}

func TestSendTestNotification(t *testing.T) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	service := newTestService(sms, email)

	contact := models.Contact{
		PhoneNumber: "+12345678901", Email: "grace@example.com",
		SmsEnabled: true, EmailEnabled: true,
	}
	results := service.SendTestNotification(context.Background(), contact, testUser())

	assert.Len(t, results, 2)
	assert.Len(t, sms.sent, 1)
	assert.Len(t, email.sent, 1)
}
