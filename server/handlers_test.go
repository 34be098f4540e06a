package server

import (
	"net/http"
	"testing"

	"github.com/Tushar2604/SafePath/server/auth"
	"github.com/Tushar2604/SafePath/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signUpBody(email, phoneNumber string) map[string]interface{} {
	return map[string]interface{}{
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"email":        email,
		"phone_number": phoneNumber,
		"password":     "super-secret",
	}
}

func TestSignUpHandler(t *testing.T) {
	setupHandlerTest(t)

	rw, payload := doRequest(signUpHandler, "POST", "/signup",
		signUpBody("grace@example.com", "+12345678909"), nil)

	require.Equal(t, http.StatusCreated, rw.Code)

	data := payload.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])

	user := data["user"].(map[string]interface{})
	assert.Empty(t, user["password"])

	// Same email again is a conflict
	rw, _ = doRequest(signUpHandler, "POST", "/signup",
		signUpBody("grace@example.com", "+12345678908"), nil)
	assert.Equal(t, http.StatusConflict, rw.Code)
}

func TestSignUpHandlerFirstAccountIsAdmin(t *testing.T) {
	// setupHandlerTest creates a user already, so reset to an empty db
	setupHandlerTest(t)
	models.InitializeTestDb()

	rw, payload := doRequest(signUpHandler, "POST", "/signup",
		signUpBody("grace@example.com", "+12345678909"), nil)
	require.Equal(t, http.StatusCreated, rw.Code)

	token := payload.Data.(map[string]interface{})["token"].(string)
	claims, err := auth.DecodeJWT(token, authKeyPair)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	rw, payload = doRequest(signUpHandler, "POST", "/signup",
		signUpBody("mary@example.com", "+12345678908"), nil)
	require.Equal(t, http.StatusCreated, rw.Code)

	token = payload.Data.(map[string]interface{})["token"].(string)
	claims, err = auth.DecodeJWT(token, authKeyPair)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)
}

func TestLogInHandler(t *testing.T) {
	user, _ := setupHandlerTest(t)

	rw, _ := doRequest(logInHandler, "POST", "/login",
		map[string]interface{}{"email": user.Email, "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)

	rw, payload := doRequest(logInHandler, "POST", "/login",
		map[string]interface{}{"email": user.Email, "password": "super-secret"}, nil)
	require.Equal(t, http.StatusOK, rw.Code)

	data := payload.Data.(map[string]interface{})
	token := data["token"].(string)

	claims, err := auth.DecodeJWT(token, authKeyPair)
	require.NoError(t, err)
	assert.Equal(t, "Ada", claims.FirstName)
}
