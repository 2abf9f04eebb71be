package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSendAndRunRoundTrip(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	defer clientRaw.Close()
	defer serverRaw.Close()

	client := New(clientRaw)
	server := New(serverRaw)

	received := make(chan []byte, 1)
	done := make(chan struct{})
	go func() {
		_ = server.Run(func(buf []byte) status.Status {
			received <- buf
			return status.OK
		})
		close(done)
	}()

	msg, st := wire.EncodeClient(wire.ClientMessage{ID: 1, Kind: wire.RequestConnect})
	require.Equal(t, status.OK, st)
	require.NoError(t, client.Send(msg))

	select {
	case got := <-received:
		decoded, st := wire.DecodeClient(got)
		require.Equal(t, status.OK, st)
		assert.Equal(t, wire.RequestConnect, decoded.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivered buffer")
	}

	require.NoError(t, client.Close())
	<-done
}

func TestRunReturnsNilOnCleanClose(t *testing.T) {
	clientRaw, serverRaw := net.Pipe()
	server := New(serverRaw)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(func(buf []byte) status.Status { return status.OK })
	}()

	require.NoError(t, clientRaw.Close())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after peer closed")
	}
	server.Close()
}
