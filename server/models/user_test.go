package models

import (
	"testing"

	"github.com/Tushar2604/SafePath/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	InitializeTestDb()

	exists, err := AtLeastOneUserExists()
	require.NoError(t, err)
	assert.False(t, exists)

	user := createTestUser(t, "ada@example.com", "+12345678901")
	assert.Equal(t, UNKNOWN_BLOOD_TYPE, user.BloodType)
	assert.True(t, auth.CheckPasswordHash("super-secret", user.Password), "password should be stored hashed")

	exists, err = AtLeastOneUserExists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFindUserByExcludesPassword(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "ada@example.com", "+12345678901")

	found, err := FindUserBy("id", user.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Password)

	passwordHash, err := FindUserPassword("ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, passwordHash)
}

func TestAddDeviceTokenUpserts(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "ada@example.com", "+12345678901")

	require.NoError(t, user.AddDeviceToken("token-1", IOS_PLATFORM))
	require.NoError(t, user.AddDeviceToken("token-2", ANDROID_PLATFORM))

	// Re-registering the same token must not create another row
	require.NoError(t, user.AddDeviceToken("token-1", ANDROID_PLATFORM))

	tokens, err := user.DeviceTokenStrings()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"token-1", "token-2"}, tokens)
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "ada@example.com", "+12345678901")

	require.NoError(t, user.Update(map[string]interface{}{"password": "new-secret"}))

	passwordHash, err := FindUserPassword("ada@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("new-secret", passwordHash))
	assert.False(t, auth.CheckPasswordHash("super-secret", passwordHash))
}
