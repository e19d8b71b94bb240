package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	testCases := []struct {
		kind Kind
		want string
	}{
		{KindConfiguration, "ConfigurationError"},
		{KindNotFound, "NotFound"},
		{KindEmpty, "Empty"},
		{KindTransport, "TransportError"},
		{KindMalformedResponse, "MalformedResponse"},
		{KindAuthentication, "AuthenticationError"},
		{KindDelivery, "DeliveryError"},
		{KindUnknown, "UnknownError"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.String())
		})
	}
}

func TestPipelineErrorMatchesSentinelThroughWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("extract: %w", New(KindTransport, "gemini.generate", cause))

	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, ErrMalformedResponse))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "gemini.generate: TransportError: connection reset")
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestCommandErrorCarriesExitCode(t *testing.T) {
	inner := Newf(KindConfiguration, "config", "GEMINI_API_KEY is not set")
	cmdErr := NewCommandError(inner, 1)

	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Equal(t, inner.Error(), cmdErr.Error())
	assert.True(t, errors.Is(cmdErr, ErrConfiguration))
}
