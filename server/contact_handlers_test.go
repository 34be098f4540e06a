package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Tushar2604/SafePath/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContactHandler(t *testing.T) {
	user, _ := setupHandlerTest(t)
	vars := map[string]string{"uid": fmt.Sprint(user.ID)}

	rw, payload := doRequest(createContactHandler, "POST", "/users/1/contacts",
		map[string]interface{}{
			"first_name": "Grace", "last_name": "Hopper",
			"phone_number": "+12345678902", "relationship": "Friend",
			"sms_enabled": true,
		}, vars)

	require.Equal(t, http.StatusCreated, rw.Code)
	assert.True(t, payload.Success)

	// Same phone number again is a conflict
	rw, _ = doRequest(createContactHandler, "POST", "/users/1/contacts",
		map[string]interface{}{
			"first_name": "Grace", "last_name": "Hopper",
			"phone_number": "+12345678902", "relationship": "Friend",
		}, vars)
	assert.Equal(t, http.StatusConflict, rw.Code)
}

func TestCreateContactHandlerEnforcesLimit(t *testing.T) {
	user, _ := setupHandlerTest(t)

	for i := 0; i < models.MAX_CONTACTS_PER_USER; i++ {
		addTestContact(t, user, fmt.Sprintf("+1234567891%v", i))
	}

	rw, payload := doRequest(createContactHandler, "POST", "/users/1/contacts",
		map[string]interface{}{
			"first_name": "One", "last_name": "TooMany",
			"phone_number": "+12345678999", "relationship": "Friend",
		}, map[string]string{"uid": fmt.Sprint(user.ID)})

	assert.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Contains(t, payload.Errors[0], "contact limit")
}

func TestUpdateContactHandlerMovesPrimary(t *testing.T) {
	user, _ := setupHandlerTest(t)
	first := addTestContact(t, user, "+12345678902")
	second := addTestContact(t, user, "+12345678903")

	require.NoError(t, user.UpdateContact(fmt.Sprint(first.ID), map[string]interface{}{"is_primary": true}))

	rw, _ := doRequest(updateContactHandler, "PUT", "/users/1/contacts/2",
		map[string]interface{}{"is_primary": true},
		map[string]string{"uid": fmt.Sprint(user.ID), "id": fmt.Sprint(second.ID)})
	require.Equal(t, http.StatusOK, rw.Code)

	primary, err := user.PrimaryContact()
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.ID)

	refreshed, err := models.FindContactForUser(first.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsPrimary)
}

func TestUpdateContactHandlerRejectsUnknownAndInvalidFields(t *testing.T) {
	user, _ := setupHandlerTest(t)
	contact := addTestContact(t, user, "+12345678902")
	vars := map[string]string{"uid": fmt.Sprint(user.ID), "id": fmt.Sprint(contact.ID)}

	rw, _ := doRequest(updateContactHandler, "PUT", "/users/1/contacts/1",
		map[string]interface{}{"user_id": 99}, vars)
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw, _ = doRequest(updateContactHandler, "PUT", "/users/1/contacts/1",
		map[string]interface{}{"relationship": "Acquaintance"}, vars)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestDeleteContactHandler(t *testing.T) {
	user, _ := setupHandlerTest(t)
	contact := addTestContact(t, user, "+12345678902")
	vars := map[string]string{"uid": fmt.Sprint(user.ID), "id": fmt.Sprint(contact.ID)}

	rw, _ := doRequest(deleteContactHandler, "DELETE", "/users/1/contacts/1", nil, vars)
	require.Equal(t, http.StatusOK, rw.Code)

	// Soft deleted contacts disappear from the active list
	rw, payload := doRequest(listContactsHandler, "GET", "/users/1/contacts", nil,
		map[string]string{"uid": fmt.Sprint(user.ID)})
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Empty(t, payload.Data)
}

func TestTestContactHandler(t *testing.T) {
	user, sms := setupHandlerTest(t)
	contact := addTestContact(t, user, "+12345678902")

	rw, payload := doRequest(testContactHandler, "POST", "/users/1/contacts/1/test", nil,
		map[string]string{"uid": fmt.Sprint(user.ID), "id": fmt.Sprint(contact.ID)})

	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, 1, sms.sent)

	results := payload.Data.([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, true, results[0].(map[string]interface{})["delivered"])
}
