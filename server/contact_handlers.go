package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Tushar2604/SafePath/server/models"
	"github.com/Tushar2604/SafePath/server/notifier"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

var updatableContactFields = map[string]bool{
	"first_name": true, "last_name": true, "phone_number": true, "email": true,
	"relationship": true, "is_primary": true,
	"sms_enabled": true, "email_enabled": true, "call_enabled": true,
}

func createContactHandler(rw http.ResponseWriter, r *http.Request) {
	contact := models.Contact{}

	err := json.NewDecoder(r.Body).Decode(&contact)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(contact); errs != nil {
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

	count, err := user.ActiveContactCount()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if count >= models.MAX_CONTACTS_PER_USER {
		writeResponse(rw, ResponsePayload{
			Errors: []string{fmt.Sprintf("contact limit of %v reached", models.MAX_CONTACTS_PER_USER)},
		}, http.StatusBadRequest)
		return
	}

	duplicate, err := user.HasContactWithPhoneNumber(contact.PhoneNumber, 0)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if duplicate {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact with phone number already exists"}}, http.StatusConflict)
		return
	}

	if err = user.AddContact(&contact); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: contact}, http.StatusCreated)
}

func listContactsHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	contacts, err := user.ActiveContacts()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: contacts}, http.StatusOK)
}

func updateContactHandler(rw http.ResponseWriter, r *http.Request) {
	var errs []string
	vars := mux.Vars(r)
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, updatableContactFields)
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if data["phone_number"] != nil && validate.Var(fmt.Sprintf("%v", data["phone_number"]), "e164") != nil {
		errs = append(errs, "phone_number must be in E.164 format")
	}

	if data["email"] != nil && validate.Var(fmt.Sprintf("%v", data["email"]), "omitempty,email") != nil {
		errs = append(errs, "email is invalid")
	}

	if data["relationship"] != nil && validate.Var(fmt.Sprintf("%v", data["relationship"]), "relationship") != nil {
		errs = append(errs, "relationship is invalid")
	}

	if len(errs) > 0 {
		writeResponse(rw, ResponsePayload{Errors: errs}, http.StatusBadRequest)
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

	contact, err := models.FindContactForUser(vars["id"], user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if phoneNumber, ok := data["phone_number"].(string); ok {
		duplicate, err := user.HasContactWithPhoneNumber(phoneNumber, contact.ID)
		if err != nil {
			writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
			return
		}
		if duplicate {
			writeResponse(rw, ResponsePayload{Errors: []string{"contact with phone number already exists"}}, http.StatusConflict)
			return
		}
	}

	if err = user.UpdateContact(vars["id"], data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func deleteContactHandler(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := requestUser(r)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	_, err = models.FindContactForUser(vars["id"], user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err = user.DeleteContact(vars["id"]); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func testContactHandler(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := requestUser(r)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	contact, err := models.FindContactForUser(vars["id"], user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	results := notifierService.SendTestNotification(r.Context(), *contact, user)

	writeResponse(rw, ResponsePayload{Data: channelResultsPayload(results)}, http.StatusOK)
}

// channelResultsPayload converts channel results into a JSON friendly
// form, one entry per attempted channel
func channelResultsPayload(results []notifier.ChannelResult) []map[string]interface{} {
	payload := []map[string]interface{}{}
	for _, result := range results {
		entry := map[string]interface{}{
			"method":    result.Method,
			"delivered": result.Err == nil,
		}
		if result.Err != nil {
			entry["error"] = result.Err.Error()
		}
		payload = append(payload, entry)
	}

	return payload
}
