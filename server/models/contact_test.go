package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toStringID(id uint) string {
	return fmt.Sprint(id)
}

func createTestUser(t *testing.T, email, phoneNumber string) *User {
	user := &User{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       email,
		PhoneNumber: phoneNumber,
		Password:    "super-secret",
	}
	require.NoError(t, CreateUser(user))

	return user
}

func TestSinglePrimaryContact(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "ada@example.com", "+12345678901")

	first := Contact{
		FirstName: "Grace", LastName: "Hopper", PhoneNumber: "+12345678902",
		Relationship: FRIEND_RELATIONSHIP, IsPrimary: true,
	}
	require.NoError(t, user.AddContact(&first))

	second := Contact{
		FirstName: "Alan", LastName: "Turing", PhoneNumber: "+12345678903",
		Relationship: SIBLING_RELATIONSHIP, IsPrimary: true,
	}
	require.NoError(t, user.AddContact(&second))

	// Making the second contact primary must clear the flag on the first
	refreshed, err := FindContactForUser(first.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsPrimary)

	primary, err := user.PrimaryContact()
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.ID)
}

func TestUpdateContactKeepsSinglePrimary(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "ada@example.com", "+12345678901")

	first := Contact{
		FirstName: "Grace", LastName: "Hopper", PhoneNumber: "+12345678902",
		Relationship: FRIEND_RELATIONSHIP, IsPrimary: true,
	}
	require.NoError(t, user.AddContact(&first))

	second := Contact{
		FirstName: "Alan", LastName: "Turing", PhoneNumber: "+12345678903",
		Relationship: SIBLING_RELATIONSHIP,
	}
	require.NoError(t, user.AddContact(&second))

	err := user.UpdateContact(toStringID(second.ID), map[string]interface{}{"is_primary": true})
	require.NoError(t, err)

	refreshed, err := FindContactForUser(first.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsPrimary)

	primary, err := user.PrimaryContact()
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.ID)
}

func TestDeleteContactIsSoft(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "ada@example.com", "+12345678901")

	contact := Contact{
		FirstName: "Grace", LastName: "Hopper", PhoneNumber: "+12345678902",
		Relationship: FRIEND_RELATIONSHIP,
	}
	require.NoError(t, user.AddContact(&contact))
	require.NoError(t, user.DeleteContact(contact.ID))

	// Gone from active lookups
	_, err := FindContactForUser(contact.ID, user.ID)
	assert.Error(t, err)

	contacts, err := user.ActiveContacts()
	require.NoError(t, err)
	assert.Empty(t, contacts)

	// But the row itself survives for delivery history
	var count int64
	require.NoError(t, db.Model(&Contact{}).Where("id = ?", contact.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHasContactWithPhoneNumber(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "ada@example.com", "+12345678901")

	contact := Contact{
		FirstName: "Grace", LastName: "Hopper", PhoneNumber: "+12345678902",
		Relationship: FRIEND_RELATIONSHIP,
	}
	require.NoError(t, user.AddContact(&contact))

	duplicate, err := user.HasContactWithPhoneNumber("+12345678902", 0)
	require.NoError(t, err)
	assert.True(t, duplicate)

	// The contact itself is excluded when updating
	duplicate, err = user.HasContactWithPhoneNumber("+12345678902", contact.ID)
	require.NoError(t, err)
	assert.False(t, duplicate)
}
