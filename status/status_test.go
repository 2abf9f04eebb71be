package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOKIsZero(t *testing.T) {
	assert.Equal(t, Status(0), OK)
	assert.Equal(t, RemoteStatus(0), REMOTE_OK)
}

func TestHasError(t *testing.T) {
	assert.False(t, HasError(OK))
	for s := DECODING_FAILURE; s <= INTERFACE_VERSION_MISMATCH; s++ {
		assert.True(t, HasError(s), "status %v should be an error", s)
	}
}

func TestStringIsTotal(t *testing.T) {
	for s := OK; s <= INTERFACE_VERSION_MISMATCH; s++ {
		assert.NotEmpty(t, s.String())
	}
	assert.Contains(t, Status(9999).String(), "unknown")
}

func TestRemoteStatusLocalRoundTrip(t *testing.T) {
	cases := []Status{
		OK, DECODING_FAILURE, ENCODING_FAILURE, INCONSISTENT_REQUEST,
		INCONSISTENT_REPLY, ILLEGAL_OPERATION, NO_SUCH_COMPONENT,
		NOT_CONNECTED, CONNECTION_REFUSED,
	}
	for _, s := range cases {
		assert.Equal(t, s, s.Remote().Local())
	}
}

func TestUnknownRemoteStatusDecodesToInconsistentReply(t *testing.T) {
	var unknown RemoteStatus = 100
	assert.Equal(t, INCONSISTENT_REPLY, unknown.Local())
}

func TestStatusErrorWrap(t *testing.T) {
	assert.Nil(t, Wrap(OK))
	err := Wrap(NOT_CONNECTED)
	assert.Error(t, err)
	assert.Equal(t, "NOT_CONNECTED", err.Error())

	var se Error
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, NOT_CONNECTED, se.Status)
}
