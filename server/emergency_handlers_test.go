package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Tushar2604/SafePath/server/aiassist"
	"github.com/Tushar2604/SafePath/server/auth/key"
	"github.com/Tushar2604/SafePath/server/location"
	"github.com/Tushar2604/SafePath/server/models"
	"github.com/Tushar2604/SafePath/server/notifier"
	"github.com/Tushar2604/SafePath/server/work"
	"github.com/Tushar2604/SafePath/server/ws"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSMSSender struct {
	sent int
	fail bool
}

func (s *stubSMSSender) SendMessage(to, msg string) error {
	s.sent++
	if s.fail {
		return fmt.Errorf("sms provider is down")
	}
	return nil
}

type stubEmailSender struct{ sent int }

func (s *stubEmailSender) SendEmail(ctx context.Context, toEmail, subject, templateName string, data interface{}) error {
	s.sent++
	return nil
}

type stubPushSender struct{}

func (s *stubPushSender) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, int, error) {
	return len(tokens), 0, nil
}

func setupHandlerTest(t *testing.T) (*models.User, *stubSMSSender) {
	models.InitializeTestDb()
	require.NoError(t, RegisterValidators(validate))

	var err error
	authKeyPair, err = key.NewRandomKeyPair()
	require.NoError(t, err)

	locationService, err = location.NewService("")
	require.NoError(t, err)

	assistClient, err = aiassist.NewClient(context.Background(), "", "", true)
	require.NoError(t, err)

	sms := &stubSMSSender{}
	notifierService = notifier.NewService(sms, &stubEmailSender{}, &stubPushSender{}, logg)
	hub = ws.NewHub()
	workerPool = work.NewWorkerAdapter("UTC", true)

	user := &models.User{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		PhoneNumber: "+12345678901",
		Password:    "super-secret",
	}
	require.NoError(t, models.CreateUser(user))

	return user, sms
}

func addTestContact(t *testing.T, user *models.User, phoneNumber string) *models.Contact {
	contact := &models.Contact{
		FirstName: "Grace", LastName: "Hopper", PhoneNumber: phoneNumber,
		Relationship: models.FRIEND_RELATIONSHIP, SmsEnabled: true,
	}
	require.NoError(t, user.AddContact(contact))

	return contact
}

func doRequest(handler http.HandlerFunc, method, target string, body interface{}, vars map[string]string) (*httptest.ResponseRecorder, ResponsePayload) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	r := httptest.NewRequest(method, target, &buf)
	r = mux.SetURLVars(r, vars)
	rw := httptest.NewRecorder()

	handler(rw, r)

	payload := ResponsePayload{}
	json.NewDecoder(rw.Body).Decode(&payload)

	return rw, payload
}

func TestTriggerEmergencyHandler(t *testing.T) {
	user, sms := setupHandlerTest(t)
	addTestContact(t, user, "+12345678902")
	addTestContact(t, user, "+12345678903")

	rw, payload := doRequest(triggerEmergencyHandler, "POST", "/users/1/emergencies",
		map[string]interface{}{"type": "Medical", "latitude": 43.6532, "longitude": -79.3832, "accuracy": 5},
		map[string]string{"uid": fmt.Sprint(user.ID)})

	require.Equal(t, http.StatusCreated, rw.Code)

	data := payload.Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["contacts_notified"])
	assert.EqualValues(t, 2, data["contacts_reached"])
	assert.EqualValues(t, 2, data["contacts_total"])
	assert.Equal(t, 2, sms.sent)

	emergency := data["emergency"].(map[string]interface{})
	assert.Equal(t, "Medical", emergency["type"])
	assert.Equal(t, "Critical", emergency["priority"])
	// Without a maps client the address falls back to raw coordinates
	assert.Equal(t, "43.6532, -79.3832", emergency["address"])
}

func TestTriggerEmergencyDeduplicatesRapidRepeats(t *testing.T) {
	user, sms := setupHandlerTest(t)
	addTestContact(t, user, "+12345678902")

	body := map[string]interface{}{"latitude": 43.6532, "longitude": -79.3832}
	vars := map[string]string{"uid": fmt.Sprint(user.ID)}

	rw, _ := doRequest(triggerEmergencyHandler, "POST", "/users/1/emergencies", body, vars)
	require.Equal(t, http.StatusCreated, rw.Code)

	// A second tap within the window reuses the active emergency
	rw, payload := doRequest(triggerEmergencyHandler, "POST", "/users/1/emergencies", body, vars)
	require.Equal(t, http.StatusOK, rw.Code)

	data := payload.Data.(map[string]interface{})
	assert.Equal(t, true, data["duplicate"])
	assert.Equal(t, 1, sms.sent)
}

func TestTriggerEmergencyCountsFailedDeliveries(t *testing.T) {
	user, sms := setupHandlerTest(t)
	sms.fail = true
	addTestContact(t, user, "+12345678902")
	addTestContact(t, user, "+12345678903")

	rw, payload := doRequest(triggerEmergencyHandler, "POST", "/users/1/emergencies",
		map[string]interface{}{"latitude": 43.6532, "longitude": -79.3832},
		map[string]string{"uid": fmt.Sprint(user.ID)})

	require.Equal(t, http.StatusCreated, rw.Code)

	// Every contact was alerted even though no channel went through
	data := payload.Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["contacts_notified"])
	assert.EqualValues(t, 0, data["contacts_reached"])

	emergency := data["emergency"].(map[string]interface{})
	id := emergency["id"].(float64)

	refreshed, err := models.FindEmergencyForUser(uint(id), user.ID)
	require.NoError(t, err)
	require.Len(t, refreshed.ContactNotifications, 2)
	for _, notification := range refreshed.ContactNotifications {
		assert.Equal(t, models.FAILED_NOTIFICATION, notification.Status)
	}
}

func TestTriggerEmergencyValidatesCoordinates(t *testing.T) {
	user, _ := setupHandlerTest(t)

	rw, _ := doRequest(triggerEmergencyHandler, "POST", "/users/1/emergencies",
		map[string]interface{}{"latitude": 123.0, "longitude": -79.3832},
		map[string]string{"uid": fmt.Sprint(user.ID)})
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw, _ = doRequest(triggerEmergencyHandler, "POST", "/users/1/emergencies",
		map[string]interface{}{"longitude": -79.3832},
		map[string]string{"uid": fmt.Sprint(user.ID)})
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestUpdateEmergencyStatusHandler(t *testing.T) {
	user, _ := setupHandlerTest(t)
	addTestContact(t, user, "+12345678902")

	emergency := &models.Emergency{Type: models.SOS_EMERGENCY, Latitude: 1, Longitude: 1, UserID: user.ID}
	require.NoError(t, models.CreateEmergency(emergency))

	vars := map[string]string{"uid": fmt.Sprint(user.ID), "id": fmt.Sprint(emergency.ID)}

	rw, payload := doRequest(updateEmergencyStatusHandler, "PUT", "/users/1/emergencies/1/status",
		map[string]interface{}{"status": "Resolved", "note": "made it home"}, vars)

	require.Equal(t, http.StatusOK, rw.Code)

	data := payload.Data.(map[string]interface{})
	status := data["status"].(map[string]interface{})
	assert.Equal(t, "Resolved", status["name"])
	assert.NotNil(t, data["resolved_at"])

	refreshed, err := models.FindEmergencyForUser(emergency.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, refreshed.Notes, 1)

	// Re-activating a closed emergency clears the resolution stamps
	rw, payload = doRequest(updateEmergencyStatusHandler, "PUT", "/users/1/emergencies/1/status",
		map[string]interface{}{"status": "Active"}, vars)
	require.Equal(t, http.StatusOK, rw.Code)

	data = payload.Data.(map[string]interface{})
	status = data["status"].(map[string]interface{})
	assert.Equal(t, "Active", status["name"])
	assert.Nil(t, data["resolved_at"])

	// An unknown status never makes it past validation
	rw, _ = doRequest(updateEmergencyStatusHandler, "PUT", "/users/1/emergencies/1/status",
		map[string]interface{}{"status": "Closed"}, vars)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestUpdateEmergencyLocationHandler(t *testing.T) {
	user, _ := setupHandlerTest(t)

	emergency := &models.Emergency{Type: models.SOS_EMERGENCY, Latitude: 1, Longitude: 1, UserID: user.ID}
	require.NoError(t, models.CreateEmergency(emergency))

	vars := map[string]string{"uid": fmt.Sprint(user.ID), "id": fmt.Sprint(emergency.ID)}
	body := map[string]interface{}{"latitude": 43.66, "longitude": -79.39, "accuracy": 10}

	rw, _ := doRequest(updateEmergencyLocationHandler, "PUT", "/users/1/emergencies/1/location", body, vars)
	require.Equal(t, http.StatusOK, rw.Code)

	refreshed, err := models.FindEmergencyForUser(emergency.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, refreshed.LocationHistory, 1)

	// Closed emergencies no longer accept location updates
	require.NoError(t, emergency.SetStatus(models.RESOLVED_EMERGENCY, user.ID))

	rw, _ = doRequest(updateEmergencyLocationHandler, "PUT", "/users/1/emergencies/1/location", body, vars)
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestEmergencyHistoryHandler(t *testing.T) {
	user, _ := setupHandlerTest(t)

	for i := 0; i < 3; i++ {
		emergency := &models.Emergency{Type: models.SOS_EMERGENCY, Latitude: 1, Longitude: 1, UserID: user.ID}
		require.NoError(t, models.CreateEmergency(emergency))
	}

	rw, payload := doRequest(emergencyHistoryHandler, "GET", "/users/1/emergencies",
		nil, map[string]string{"uid": fmt.Sprint(user.ID)})

	require.Equal(t, http.StatusOK, rw.Code)
	assert.Len(t, payload.Data.([]interface{}), 3)
}

func TestAiAssistHandler(t *testing.T) {
	user, _ := setupHandlerTest(t)

	emergency := &models.Emergency{
		Type: models.MEDICAL_EMERGENCY, Latitude: 1, Longitude: 1,
		Description: "someone collapsed", UserID: user.ID,
	}
	require.NoError(t, models.CreateEmergency(emergency))

	rw, payload := doRequest(aiAssistHandler, "GET", "/users/1/emergencies/1/ai-assist",
		nil, map[string]string{"uid": fmt.Sprint(user.ID), "id": fmt.Sprint(emergency.ID)})

	require.Equal(t, http.StatusOK, rw.Code)

	data := payload.Data.(map[string]interface{})
	assert.NotEmpty(t, data["firstAidSteps"])
}

func TestAiAssistHandlerFreeFormDescription(t *testing.T) {
	user, _ := setupHandlerTest(t)
	vars := map[string]string{"uid": fmt.Sprint(user.ID)}

	rw, payload := doRequest(aiAssistHandler, "GET",
		"/users/1/ai-assist?description=severe+bleeding", nil, vars)
	require.Equal(t, http.StatusOK, rw.Code)

	data := payload.Data.(map[string]interface{})
	assert.NotEmpty(t, data["firstAidSteps"])

	// Without a recorded emergency a description is mandatory
	rw, _ = doRequest(aiAssistHandler, "GET", "/users/1/ai-assist", nil, vars)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}
