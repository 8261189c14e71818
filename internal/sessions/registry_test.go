package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn records sent messages and close calls.
type stubConn struct {
	sent   []any
	closed bool
	full   bool
}

func (c *stubConn) Send(msg any) bool {
	if c.full {
		return false
	}
	c.sent = append(c.sent, msg)
	return true
}

func (c *stubConn) Close(code int, reason string) { c.closed = true }

func TestRegisterAndAuthenticate(t *testing.T) {
	r := NewRegistry()
	conn := &stubConn{}

	s := r.Register("t1", "10.0.0.1:5000", conn)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.Authenticated)
	assert.Equal(t, 1, r.Count())
	assert.Empty(t, r.Authenticated(), "pending sessions are not authenticated")

	require.NoError(t, r.Authenticate(s, "1001", "Alice"))
	assert.True(t, s.Authenticated)
	assert.Equal(t, "1001", s.Extension)
	assert.Len(t, r.Authenticated(), 1)

	assert.ErrorIs(t, r.Authenticate(s, "1001", "Alice"), ErrAlreadyAuthenticated)
}

func TestAuthenticateUnknownTransport(t *testing.T) {
	r := NewRegistry()
	s := r.Register("t1", "", &stubConn{})
	r.Remove("t1")

	assert.ErrorIs(t, r.Authenticate(s, "1001", "Alice"), ErrUnknownTransport)
}

func TestRegisterReplacesSameTransport(t *testing.T) {
	r := NewRegistry()
	first := r.Register("t1", "", &stubConn{})
	require.NoError(t, r.Authenticate(first, "1001", "Alice"))

	second := r.Register("t1", "", &stubConn{})
	assert.Equal(t, 1, r.Count(), "same transport never holds two sessions")
	assert.ErrorIs(t, r.Authenticate(first, "1001", "Alice"), ErrUnknownTransport,
		"the replaced session is no longer registered")
	require.NoError(t, r.Authenticate(second, "1001", "Alice"))
}

func TestForExtensionMultiDevice(t *testing.T) {
	r := NewRegistry()
	a := r.Register("t1", "", &stubConn{})
	b := r.Register("t2", "", &stubConn{})
	c := r.Register("t3", "", &stubConn{})
	require.NoError(t, r.Authenticate(a, "1001", "Alice"))
	require.NoError(t, r.Authenticate(b, "1001", "Alice"))
	require.NoError(t, r.Authenticate(c, "1002", "Bob"))

	assert.Len(t, r.ForExtension("1001"), 2)
	assert.Len(t, r.ForExtension("1002"), 1)
	assert.Empty(t, r.ForExtension("1003"))
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	s := r.Register("t1", "", &stubConn{})
	require.NoError(t, r.Authenticate(s, "1001", "Alice"))

	r.Remove("t1")
	assert.Zero(t, r.Count())
	r.Remove("t1") // second remove is a no-op
}

func TestSessionSendUsesConn(t *testing.T) {
	r := NewRegistry()
	conn := &stubConn{}
	s := r.Register("t1", "", conn)

	assert.True(t, s.Send("hello"))
	require.Len(t, conn.sent, 1)

	conn.full = true
	assert.False(t, s.Send("dropped"), "a full transport reports the drop")
}
