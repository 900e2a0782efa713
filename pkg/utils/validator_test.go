package utils

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValidationError(t *testing.T) {
	assert.Empty(t, FormatValidationError(nil))

	v := validator.New()

	type req struct {
		ProjectID int    `validate:"required,min=1"`
		Target    string `validate:"omitempty,oneof=build runtime both"`
		Alias     string `validate:"required,max=63"`
	}

	err := v.Struct(req{Target: "everywhere", Alias: "staging"})
	require.Error(t, err)
	msg := FormatValidationError(err)
	assert.Contains(t, msg, "required")
	assert.Contains(t, msg, "one of: build runtime both")
}

func TestFormatValidationErrorJSON(t *testing.T) {
	var target struct {
		ID int64 `json:"id"`
	}

	err := json.Unmarshal([]byte(`{"id":"not-a-number"}`), &target)
	require.Error(t, err)
	assert.Contains(t, FormatValidationError(err), "should be int64")

	err = json.Unmarshal([]byte(`{`), &target)
	require.Error(t, err)
	assert.Equal(t, "invalid JSON format", FormatValidationError(err))
}
