package wire

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	want := record{Name: "alice", Count: 7}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, want))

	var got record
	require.NoError(t, ReadJSON(&buf, &got))
	assert.Equal(t, want, got)
}

func TestReadFrameTruncatedLastByte(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`{"a":1}`)))

	full := buf.Bytes()
	truncated := bytes.NewReader(full[:len(full)-1])

	_, err := ReadFrame(truncated)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestReadFrameTooLarge(t *testing.T) {
	var lenBuf [4]byte
	lenBuf[0] = 0xFF // declares an absurd length
	r := bytes.NewReader(lenBuf[:])

	_, err := ReadFrame(r)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDispatchUnrecognisedAction(t *testing.T) {
	d := NewDispatcher()
	resp := d.Dispatch(context.Background(), []byte(`{"action":"nope","data":{}}`))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.ErrorMsg, "unrecognised action")
}

func TestDispatchMissingAction(t *testing.T) {
	d := NewDispatcher()
	resp := d.Dispatch(context.Background(), []byte(`{"data":{}}`))
	assert.Equal(t, StatusError, resp.Status)
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := NewDispatcher()
	d.Handle("boom", false, func(ctx context.Context, req Request) Response {
		panic("kaboom")
	})
	resp := d.Dispatch(context.Background(), []byte(`{"action":"boom"}`))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.ErrorMsg, "internal error")
}

func TestDispatchRequiresSession(t *testing.T) {
	d := NewDispatcher()
	d.RequireSession = func(req Request) error { return assert.AnError }
	d.Handle("whoami", true, func(ctx context.Context, req Request) Response { return Ok(nil) })

	resp := d.Dispatch(context.Background(), []byte(`{"action":"whoami","data":{}}`))
	assert.Equal(t, StatusError, resp.Status)
}
