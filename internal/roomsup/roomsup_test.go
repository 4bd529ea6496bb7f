package roomsup

import (
	"testing"

	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestResolvePrefixDisambiguation(t *testing.T) {
	s := New(nil, 9500, nil, nil)
	s.handles["abcd1111-aaaa"] = &Handle{RoomID: "abcd1111-aaaa", Port: 9500}
	s.handles["abcd2222-bbbb"] = &Handle{RoomID: "abcd2222-bbbb", Port: 9501}

	_, err := s.Resolve("abcd")
	assert.ErrorIs(t, err, models.ErrAmbiguousRoomID)

	h, err := s.Resolve("abcd1111")
	assert.NoError(t, err)
	assert.Equal(t, "abcd1111-aaaa", h.RoomID)
}

func TestResolveNoMatch(t *testing.T) {
	s := New(nil, 9500, nil, nil)
	_, err := s.Resolve("zzzz")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestAllocatePortMonotonic(t *testing.T) {
	s := New(nil, 9500, nil, nil)
	a := s.AllocatePort()
	b := s.AllocatePort()
	assert.Equal(t, 9500, a)
	assert.Equal(t, 9501, b)
}

func TestReapIsIdempotent(t *testing.T) {
	var reaped int
	s := New(nil, 9500, nil, func(roomID string, winner *string) { reaped++ })
	s.handles["room-1"] = &Handle{RoomID: "room-1"}

	s.Reap("room-1", nil)
	s.Reap("room-1", nil) // second reap of the same id must be a no-op

	assert.Equal(t, 1, reaped)
}
