package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsFirstErrorPerField(t *testing.T) {
	v := New()
	require.True(t, v.Valid())

	v.Check(NotBlank("yes"), "option", "option is required")
	v.Check(Between(int64(0), 1, 100), "amount", "amount must be between 1 and 100")
	v.Check(Between(int64(500), 1, 100), "amount", "second message is ignored")
	v.AddError("market_id", "market_id must be a UUID")

	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{
		"amount":    "amount must be between 1 and 100",
		"market_id": "market_id must be a UUID",
	}, v.Errors)
}
