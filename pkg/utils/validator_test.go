package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("accounting@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(1))
	assert.Error(t, ValidateQuantity(0))
	assert.Error(t, ValidateQuantity(-3))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.Zero))
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("1150000.00")))

	err := ValidateAmount(decimal.RequireFromString("-0.01"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "-0.01")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "budget ok", SanitizeString("  budget\x00 ok\x7f "))
	assert.Equal(t, "line one\nline two", SanitizeString("line one\nline two"))
}
