package validation

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `json:"username" validate:"required,alphanum,min=5"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type venue struct {
	Bourough  string `json:"bourough" validate:"bourough"`
	Crowd     string `json:"crowdControl" validate:"crowdcontrol"`
	Type      string `json:"type" validate:"partytype"`
	VenueSize int    `json:"venueSize" validate:"min=100,max=10000"`
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(signup{Username: "alice1", Email: "a@x.com", Password: "secret1"}))
	require.NoError(t, v.Struct(venue{Bourough: "Long Island", Crowd: "Kick back", Type: "Private", VenueSize: 100}))
}

func TestStruct_FieldErrorsUseJSONNames(t *testing.T) {
	v := New()

	err := v.Struct(signup{Username: "al!", Email: "nope", Password: "123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "must contain only letters and digits", ve.Fields["username"])
	assert.Equal(t, "must be a valid email", ve.Fields["email"])
	assert.Equal(t, "must be at least 6 characters", ve.Fields["password"])
}

func TestStruct_Enums(t *testing.T) {
	v := New()

	err := v.Struct(venue{Bourough: "Staten Island", Crowd: "Mixer", Type: "Public", VenueSize: 50})
	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields["bourough"], "Long Island")
	assert.Equal(t, "must be at least 100", ve.Fields["venueSize"])
	assert.NotContains(t, ve.Fields, "crowdControl")
}

func TestValidate_SatisfiesEchoShape(t *testing.T) {
	var ev interface{ Validate(i interface{}) error } = New()
	assert.Error(t, ev.Validate(&signup{}))
}
