package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Tushar2604/SafePath/server/models"
	"github.com/Tushar2604/SafePath/server/notifier"
	"github.com/Tushar2604/SafePath/server/ws"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Triggers within this window of an existing active emergency are
// treated as duplicates of it, so a panicked double-tap doesn't page
// every contact twice
const DUPLICATE_TRIGGER_WINDOW = 30 * time.Second

type triggerEmergencyParams struct {
	Type        string   `json:"type" validate:"omitempty,emergency_type"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	Accuracy    float64  `json:"accuracy"`
	Description string   `json:"description"`
}

type updateLocationParams struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Accuracy  float64  `json:"accuracy"`
}

type updateStatusParams struct {
	Status string `json:"status" validate:"required,emergency_status"`
	Note   string `json:"note"`
}

func triggerEmergencyHandler(rw http.ResponseWriter, r *http.Request) {
	params := triggerEmergencyParams{}

	err := json.NewDecoder(r.Body).Decode(&params)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(params); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: validationErrors(errs)}, http.StatusBadRequest)
		return
	}

	user, err := requestUser(r)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	// Rapid repeat triggers return the already-active emergency
	// instead of alerting everyone again
	existing, err := models.LastActiveEmergencySince(user.ID, time.Now().Add(-DUPLICATE_TRIGGER_WINDOW))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if existing != nil {
		writeResponse(rw, ResponsePayload{
			Data: map[string]interface{}{"emergency": existing, "duplicate": true},
		}, http.StatusOK)
		return
	}

	// Geocoding is best effort & never blocks the alert
	address := locationService.AddressFromCoordinates(r.Context(), *params.Latitude, *params.Longitude)

	emergency := models.Emergency{
		Type:        params.Type,
		Latitude:    *params.Latitude,
		Longitude:   *params.Longitude,
		Accuracy:    params.Accuracy,
		Address:     address,
		Description: params.Description,
		UserID:      user.ID,
	}
	if err = models.CreateEmergency(&emergency); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err = emergency.AddLocationPoint(*params.Latitude, *params.Longitude, params.Accuracy); err != nil {
		logg.Error(err)
	}
	if err = user.UpdateLastLocation(*params.Latitude, *params.Longitude, params.Accuracy); err != nil {
		logg.Error(err)
	}

	contacts, err := user.ActiveContacts()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	deliveries := notifierService.FanOut(r.Context(), contacts, user, &emergency)

	// Every contact gets an attempt and a delivery record; 'reached'
	// counts the ones where at least one channel went through
	reached := 0
	for _, delivery := range deliveries {
		method, status := notifier.DeliveredMethod(delivery.Results)
		if err := emergency.RecordNotification(delivery.Contact.ID, method, status); err != nil {
			logg.Error(err)
		}
		if notifier.HasSuccess(delivery.Results) {
			reached++
		}
	}

	if tokens, err := user.DeviceTokenStrings(); err == nil {
		notifierService.NotifyUserDevices(r.Context(), tokens,
			"Emergency alert sent",
			fmt.Sprintf("%v of your %v contact(s) have been notified", reached, len(contacts)),
			map[string]string{"emergency_id": fmt.Sprint(emergency.ID)})
	}

	hub.Broadcast(ws.UserRoom(user.ID), ws.EMERGENCY_TRIGGERED_EVENT, emergency)

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{
		"emergency":         emergency,
		"contacts_notified": len(deliveries),
		"contacts_reached":  reached,
		"contacts_total":    len(contacts),
	}}, http.StatusCreated)
}

func updateEmergencyStatusHandler(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	params := updateStatusParams{}

	err := json.NewDecoder(r.Body).Decode(&params)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(params); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: validationErrors(errs)}, http.StatusBadRequest)
		return
	}

	user, err := requestUser(r)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	emergency, err := models.FindEmergencyForUser(vars["id"], user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"emergency not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err = emergency.SetStatus(params.Status, user.ID); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if params.Note != "" {
		if err = emergency.AddNote(params.Note, user.ID); err != nil {
			logg.Error(err)
		}
	}

	// Status update notifications go out via the job queue, so a slow
	// SMS provider doesn't hold up the response
	err = workerPool.Perform(jobParamsForStatusUpdate(emergency, user.ID, params.Status))
	if err != nil {
		logg.Error(err)
	}

	hub.Broadcast(ws.EmergencyRoom(emergency.ID), ws.EMERGENCY_UPDATED_EVENT, emergency)
	hub.Broadcast(ws.UserRoom(user.ID), ws.EMERGENCY_UPDATED_EVENT, emergency)

	writeResponse(rw, ResponsePayload{Data: emergency}, http.StatusOK)
}

func updateEmergencyLocationHandler(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	params := updateLocationParams{}

	err := json.NewDecoder(r.Body).Decode(&params)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(params); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: validationErrors(errs)}, http.StatusBadRequest)
		return
	}

	user, err := requestUser(r)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	// Location can only be appended to an emergency that's still active
	emergency, err := models.FindActiveEmergencyForUser(vars["id"], user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"active emergency not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err = emergency.AddLocationPoint(*params.Latitude, *params.Longitude, params.Accuracy); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if err = user.UpdateLastLocation(*params.Latitude, *params.Longitude, params.Accuracy); err != nil {
		logg.Error(err)
	}

	hub.Broadcast(ws.EmergencyRoom(emergency.ID), ws.LOCATION_UPDATED_EVENT, map[string]interface{}{
		"emergency_id": emergency.ID,
		"latitude":     *params.Latitude,
		"longitude":    *params.Longitude,
		"accuracy":     params.Accuracy,
	})

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func findEmergencyHandler(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	emergency, err := models.FindEmergencyForUser(vars["id"], vars["uid"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"emergency not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: emergency}, http.StatusOK)
}

func emergencyHistoryHandler(rw http.ResponseWriter, r *http.Request) {
	emergencies, paging, err := models.FetchEmergencies(mux.Vars(r)["uid"], pageParam(r), pageSizeParam(r))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: emergencies, Paging: paging}, http.StatusOK)
}

// aiAssistHandler serves first-aid guidance, either for a recorded
// emergency or for a free-form "description" query on its own
func aiAssistHandler(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	description := r.URL.Query().Get("description")

	if id := vars["id"]; id != "" {
		emergency, err := models.FindEmergencyForUser(id, vars["uid"])
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeResponse(rw, ResponsePayload{Errors: []string{"emergency not found"}}, http.StatusNotFound)
			return
		}
		if err != nil {
			writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
			return
		}

		if description == "" {
			description = emergency.Description
		}
		if description == "" {
			description = fmt.Sprintf("%v emergency", emergency.Type)
		}
	}

	if description == "" {
		writeResponse(rw, ResponsePayload{Errors: []string{"description is required"}}, http.StatusBadRequest)
		return
	}

	guidance, err := assistClient.FirstAidGuidance(r.Context(), description)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"guidance is unavailable right now"}}, http.StatusServiceUnavailable)
		return
	}

	writeResponse(rw, ResponsePayload{Data: guidance}, http.StatusOK)
}

func nearbyServicesHandler(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	latitude, latErr := strconv.ParseFloat(query.Get("latitude"), 64)
	longitude, lonErr := strconv.ParseFloat(query.Get("longitude"), 64)
	if latErr != nil || lonErr != nil ||
		validate.Var(latitude, "latitude") != nil || validate.Var(longitude, "longitude") != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid latitude & longitude are required"}}, http.StatusBadRequest)
		return
	}

	placeType := query.Get("type")
	if placeType == "" {
		placeType = "hospital"
	}

	services, err := locationService.NearbyEmergencyServices(r.Context(), latitude, longitude, placeType)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	writeResponse(rw, ResponsePayload{Data: services}, http.StatusOK)
}

// serviceRouteHandler returns a driving route summary, e.g. from the
// user's position to the nearest hospital
func serviceRouteHandler(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	coords := make([]float64, 4)
	for i, param := range []string{"from_latitude", "from_longitude", "to_latitude", "to_longitude"} {
		value, err := strconv.ParseFloat(query.Get(param), 64)
		if err != nil {
			writeResponse(rw, ResponsePayload{Errors: []string{fmt.Sprintf("valid %v is required", param)}}, http.StatusBadRequest)
			return
		}
		coords[i] = value
	}

	route, err := locationService.Directions(r.Context(), coords[0], coords[1], coords[2], coords[3])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	writeResponse(rw, ResponsePayload{Data: route}, http.StatusOK)
}
