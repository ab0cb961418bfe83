package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type profilePayload struct {
	Name          string `json:"name" validate:"notblank,max=255"`
	Age           int    `json:"age" validate:"gte=0,lte=150"`
	ContactNumber string `json:"contact_number" validate:"required,phone"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female other"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(&signupPayload{Email: "jane@example.com", Password: "s3cret-pass"}))
	})

	t.Run("fields are reported by json name", func(t *testing.T) {
		err := ValidateStruct(&signupPayload{Email: "not-an-email", Password: "short"})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "email must be a valid email", fields["email"])
		assert.Equal(t, "password must be at least 8", fields["password"])
	})

	t.Run("custom tags", func(t *testing.T) {
		err := ValidateStruct(&profilePayload{Name: "   ", Age: 200, ContactNumber: "call me", Gender: "robot"})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "name is required", fields["name"])
		assert.Equal(t, "age must be less than or equal to 150", fields["age"])
		assert.Equal(t, "contact_number must be a valid phone number", fields["contact_number"])
		assert.Equal(t, "gender must be one of: male female other", fields["gender"])
	})

	t.Run("phone formats", func(t *testing.T) {
		for _, phone := range []string{"+15550100", "(555) 010-0100", "555.010.0100"} {
			assert.NoError(t, ValidateStruct(&profilePayload{Name: "Jane", ContactNumber: phone}), phone)
		}
	})
}

func TestFieldDetails(t *testing.T) {
	assert.Nil(t, FieldDetails(errors.New("plain")))
	assert.Nil(t, GetValidationFields(errors.New("plain")))
	assert.False(t, IsValidationError(errors.New("plain")))

	err := ValidateStruct(&signupPayload{})
	details := FieldDetails(err)
	assert.Equal(t, "email is required", details["email"])
	assert.Equal(t, "password is required", details["password"])
}

func TestRenameField(t *testing.T) {
	err := ValidateStruct(&signupPayload{})
	require.Error(t, err)

	renamed := RenameField(err, "email", "username")

	fields := GetValidationFields(renamed)
	assert.Equal(t, "username is required", fields["username"])
	assert.NotContains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, GetValidationFields(err), "email")

	plain := errors.New("not a validation error")
	assert.Same(t, plain, RenameField(plain, "email", "username"))
}
