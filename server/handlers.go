package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Tushar2604/SafePath/server/auth"
	"github.com/Tushar2604/SafePath/server/auth/key"
	"github.com/Tushar2604/SafePath/server/models"
	"github.com/Tushar2604/SafePath/server/ws"
	"github.com/Tushar2604/SafePath/version"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const AUTH_TOKEN_TTL = 24 * time.Hour

func healthCheckHandler(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Data: map[string]string{"version": version.Version}}, http.StatusOK)
}

func jwksHandler(rw http.ResponseWriter, r *http.Request) {
	keyPairJWK, err := authKeyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(http.StatusOK)
	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(keyPairJWK))
}

func signUpHandler(rw http.ResponseWriter, r *http.Request) {
	user := models.User{}

	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(user); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: validationErrors(errs)}, http.StatusBadRequest)
		return
	}

	// The very first account becomes the admin, everyone after is basic
	roleName := models.BASIC_USER_ROLE
	userExists, err := models.AtLeastOneUserExists()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if !userExists {
		roleName = models.ADMIN_USER_ROLE
	}

	role, err := models.FindRole(roleName)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	user.RoleID = role.ID

	err = models.CreateUser(&user)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			writeResponse(rw, ResponsePayload{Errors: []string{"account with email/phone number already exists"}}, http.StatusConflict)
			return
		}
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	token, err := newAuthToken(&user, roleName == models.ADMIN_USER_ROLE)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	user.Password = ""
	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{"token": token, "user": user}}, http.StatusCreated)
}

func logInHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	json.NewDecoder(r.Body).Decode(&data)

	passwordHash, err := models.FindUserPassword(data["email"])
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
		return
	}

	user, err := models.FindUserBy("email", data["email"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	isAdmin, err := user.IsAdmin()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	token, err := newAuthToken(user, isAdmin)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err := user.UpdateLastSeen(); err != nil {
		logg.Error(err)
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{"token": token, "user": user}}, http.StatusOK)
}

func findUserHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: user}, http.StatusOK)
}

func updateUserHandler(rw http.ResponseWriter, r *http.Request) {
	var errs []string
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"first_name": true, "last_name": true, "phone_number": true, "password": true,
		"profile_image": true, "blood_type": true, "allergies": true, "medications": true,
		"medical_conditions": true, "medical_notes": true,
		"notifications_enabled": true, "location_enabled": true,
		"emergency_mode_enabled": true, "auto_call_enabled": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if data["password"] != nil && validate.Var(fmt.Sprintf("%v", data["password"]), "password") != nil {
		errs = append(errs, "password cannot be empty or contain whitespace")
	}

	if data["phone_number"] != nil && validate.Var(fmt.Sprintf("%v", data["phone_number"]), "e164") != nil {
		errs = append(errs, "phone_number must be in E.164 format")
	}

	if data["blood_type"] != nil && validate.Var(fmt.Sprintf("%v", data["blood_type"]), "blood_type") != nil {
		errs = append(errs, "blood_type is invalid")
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

	if err = user.Update(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func deleteUserHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteUser(mux.Vars(r)["uid"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func createDeviceTokenHandler(rw http.ResponseWriter, r *http.Request) {
	deviceToken := models.DeviceToken{}

	err := json.NewDecoder(r.Body).Decode(&deviceToken)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(deviceToken); errs != nil {
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

	if err = user.AddDeviceToken(deviceToken.Token, deviceToken.Platform); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{}, http.StatusCreated)
}

func wsHandler(rw http.ResponseWriter, r *http.Request) {
	decodedJWT := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)

	user, err := models.FindUserBy("id", decodedJWT.Claims.Subject)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	rooms := []string{ws.UserRoom(user.ID)}
	for _, emergencyID := range r.URL.Query()["emergency_id"] {
		emergency, err := models.FindEmergencyForUser(emergencyID, user.ID)
		if err != nil {
			continue
		}
		rooms = append(rooms, ws.EmergencyRoom(emergency.ID))
	}

	if err := ws.ServeWS(hub, rw, r, rooms); err != nil {
		logg.Errorf("websocket upgrade failed: %v", err)
	}
}

func jobsHandler(rw http.ResponseWriter, r *http.Request) {
	var jobs []models.Job
	var paging *models.Paging
	var err error

	status := r.URL.Query().Get("status")
	if status != "" {
		jobs, paging, err = models.FetchJobsByStatus(status, pageParam(r))
	} else {
		jobs, paging, err = models.FetchJobs(pageParam(r))
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: jobs, Paging: paging}, http.StatusOK)
}

func emergencyStatsHandler(rw http.ResponseWriter, r *http.Request) {
	stats, err := models.CurrentEmergencyStats()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: stats}, http.StatusOK)
}

func jobsStatsHandler(rw http.ResponseWriter, r *http.Request) {
	stats, err := models.CurrentJobsStats()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: stats}, http.StatusOK)
}

func newAuthToken(user *models.User, isAdmin bool) (string, error) {
	claims := auth.SafePathTokenClaims{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   isAdmin,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(user.ID),
			Issuer:    "safepath",
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(AUTH_TOKEN_TTL).Unix(),
		},
	}

	return auth.EncodeJWT(claims, authKeyPair)
}
