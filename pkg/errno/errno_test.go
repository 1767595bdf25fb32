package errno

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"nil", nil, OK.Code},
		{"plain sentinel", ErrReceiptTimeout, ErrReceiptTimeout.Code},
		{"wrapped sentinel", fmt.Errorf("%w: 0xabc", ErrGasQuoteUnavailable), ErrGasQuoteUnavailable.Code},
		{"pointer", &Errno{Code: 42, Message: "x"}, 42},
		{"foreign error", errors.New("boom"), Internal.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := Decode(tt.err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWrappedSentinelMatches(t *testing.T) {
	err := fmt.Errorf("%w: unbalanced parentheses", ErrMalformedSignature)

	assert.ErrorIs(t, err, ErrMalformedSignature)
	assert.NotErrorIs(t, err, ErrInvalidAmount)
	_, msg := Decode(err)
	assert.Equal(t, "malformed signature: unbalanced parentheses", msg)
}
