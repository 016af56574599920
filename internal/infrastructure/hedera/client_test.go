package hedera

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"zengarden/internal/domain"
)

func TestMemo(t *testing.T) {
	assert.Equal(t, "zengarden-badge:abc", memo("abc"))
	assert.Len(t, memo(strings.Repeat("x", 200)), 100)
}

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, []byte("ipfs://bafy123"), MetadataFor("bafy123"))
}

func TestPartialMintError(t *testing.T) {
	cause := errors.New("TOKEN_NOT_ASSOCIATED_TO_ACCOUNT")
	err := error(&PartialMintError{Receipt: domain.MintReceipt{TokenID: "0.0.5", SerialNumber: 7}, Err: cause})

	var partial *PartialMintError
	assert.True(t, errors.As(err, &partial))
	assert.Equal(t, int64(7), partial.Receipt.SerialNumber)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "serial 7")
}

func TestValidAccountID(t *testing.T) {
	valid := []string{"0.0.1001", "0.0.4321", "1.2.3"}
	invalid := []string{
		"",
		"alice",
		"0.0",
		"0.0.-1",
		"0.0.1001-abcde",
		"0.0.99999999999999999999999",
		"99999999999999999999999.0.1",
	}
	for _, id := range valid {
		assert.True(t, ValidAccountID(id), id)
	}
	for _, id := range invalid {
		assert.False(t, ValidAccountID(id), id)
	}
}
