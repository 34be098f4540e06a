package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/Tushar2604/SafePath/server/mailer"
	"github.com/Tushar2604/SafePath/server/models"
	"go.uber.org/zap"
)

type SMSSender interface {
	SendMessage(to, msg string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, subject, templateName string, data interface{}) error
}

type PushSender interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, int, error)
}

// ChannelResult is the outcome of one delivery attempt on one channel
type ChannelResult struct {
	Method string
	Err    error
}

// Delivery is everything that was attempted for a single contact
type Delivery struct {
	Contact models.Contact
	Results []ChannelResult
}

type Service struct {
	sms   SMSSender
	email EmailSender
	push  PushSender
	logg  *zap.SugaredLogger
}

func NewService(sms SMSSender, email EmailSender, push PushSender, logg *zap.SugaredLogger) *Service {
	return &Service{sms: sms, email: email, push: push, logg: logg}
}

// SendEmergencyAlert notifies a single contact on every channel their
// preferences enable & reports each attempt separately
func (s *Service) SendEmergencyAlert(ctx context.Context, contact models.Contact, user *models.User, emergency *models.Emergency) []ChannelResult {
	results := []ChannelResult{}

	if contact.SmsEnabled {
		err := s.sms.SendMessage(contact.PhoneNumber, emergencySMSBody(user, emergency))
		results = append(results, ChannelResult{Method: models.SMS_METHOD, Err: err})
	}

	if contact.EmailEnabled && contact.Email != "" {
		err := s.email.SendEmail(ctx, contact.Email,
			fmt.Sprintf("EMERGENCY: %v needs help", user.Name()),
			mailer.EMERGENCY_ALERT_TEMPLATE,
			map[string]interface{}{
				"UserName":      user.Name(),
				"EmergencyType": emergency.Type,
				"Address":       emergency.Address,
				"MapLink":       mapLink(emergency.Latitude, emergency.Longitude),
				"Description":   emergency.Description,
			})
		results = append(results, ChannelResult{Method: models.EMAIL_METHOD, Err: err})
	}

	for _, result := range results {
		if result.Err != nil {
			s.logg.Warnf("%v alert to contact %v failed: %v", result.Method, contact.ID, result.Err)
		}
	}

	return results
}

// FanOut alerts every contact concurrently. The returned slice always
// has one entry per contact, whether its deliveries succeeded or not.
func (s *Service) FanOut(ctx context.Context, contacts []models.Contact, user *models.User, emergency *models.Emergency) []Delivery {
	deliveries := make([]Delivery, len(contacts))

	var wg sync.WaitGroup
	for i, contact := range contacts {
		wg.Add(1)
		go func(i int, contact models.Contact) {
			defer wg.Done()
			deliveries[i] = Delivery{
				Contact: contact,
				Results: s.SendEmergencyAlert(ctx, contact, user, emergency),
			}
		}(i, contact)
	}
	wg.Wait()

	return deliveries
}

// SendStatusUpdate tells a contact the emergency they were alerted
// about changed status
func (s *Service) SendStatusUpdate(ctx context.Context, contact models.Contact, user *models.User, emergency *models.Emergency, status string) []ChannelResult {
	results := []ChannelResult{}

	if contact.SmsEnabled {
		msg := fmt.Sprintf("SafePath update: the %v emergency triggered by %v is now %v.",
			emergency.Type, user.Name(), status)
		err := s.sms.SendMessage(contact.PhoneNumber, msg)
		results = append(results, ChannelResult{Method: models.SMS_METHOD, Err: err})
	}

	if contact.EmailEnabled && contact.Email != "" {
		err := s.email.SendEmail(ctx, contact.Email,
			fmt.Sprintf("Update on %v's emergency", user.Name()),
			mailer.STATUS_UPDATE_TEMPLATE,
			map[string]interface{}{
				"UserName":      user.Name(),
				"EmergencyType": emergency.Type,
				"Status":        status,
			})
		results = append(results, ChannelResult{Method: models.EMAIL_METHOD, Err: err})
	}

	return results
}

// SendTestNotification lets a user verify a contact's channels work
// without raising a real alert
func (s *Service) SendTestNotification(ctx context.Context, contact models.Contact, user *models.User) []ChannelResult {
	results := []ChannelResult{}

	if contact.SmsEnabled {
		msg := fmt.Sprintf("SafePath test: %v added you as an emergency contact. No action needed.", user.Name())
		err := s.sms.SendMessage(contact.PhoneNumber, msg)
		results = append(results, ChannelResult{Method: models.SMS_METHOD, Err: err})
	}

	if contact.EmailEnabled && contact.Email != "" {
		err := s.email.SendEmail(ctx, contact.Email,
			"SafePath test notification",
			mailer.TEST_TEMPLATE,
			map[string]interface{}{"UserName": user.Name()})
		results = append(results, ChannelResult{Method: models.EMAIL_METHOD, Err: err})
	}

	return results
}

// NotifyUserDevices pushes a note to the user's own devices, e.g. to
// confirm their alert went out
func (s *Service) NotifyUserDevices(ctx context.Context, tokens []string, title, body string, data map[string]string) {
	if s.push == nil || len(tokens) == 0 {
		return
	}

	successCount, failureCount, err := s.push.SendMulticast(ctx, tokens, title, body, data)
	if err != nil {
		s.logg.Warnf("push notification failed: %v", err)
		return
	}

	s.logg.Infof("push notification delivered to %v device(s), %v failed", successCount, failureCount)
}

// DeliveredMethod collapses a contact's channel results into the
// single method & status recorded against the emergency: the first
// successful channel wins, otherwise the first attempted one
func DeliveredMethod(results []ChannelResult) (method string, status string) {
	for _, result := range results {
		if result.Err == nil {
			return result.Method, models.SENT_NOTIFICATION
		}
	}

	if len(results) > 0 {
		return results[0].Method, models.FAILED_NOTIFICATION
	}

	return models.SMS_METHOD, models.FAILED_NOTIFICATION
}

// HasSuccess reports whether at least one channel went through
func HasSuccess(results []ChannelResult) bool {
	for _, result := range results {
		if result.Err == nil {
			return true
		}
	}
	return false
}

func emergencySMSBody(user *models.User, emergency *models.Emergency) string {
	msg := fmt.Sprintf("🚨 EMERGENCY ALERT 🚨\n%v has triggered a %v emergency.",
		user.Name(), emergency.Type)

	if emergency.Address != "" {
		msg += fmt.Sprintf("\nLocation: %v", emergency.Address)
	}
	msg += fmt.Sprintf("\nMap: %v", mapLink(emergency.Latitude, emergency.Longitude))

	if emergency.Description != "" {
		msg += fmt.Sprintf("\nDetails: %v", emergency.Description)
	}

	msg += "\nPlease try to reach them as soon as possible."
	return msg
}

func mapLink(latitude, longitude float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%v,%v", latitude, longitude)
}
