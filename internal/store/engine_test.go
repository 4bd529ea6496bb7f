package store

import (
	"path/filepath"
	"testing"

	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	e, err := NewEngine(path, nil)
	require.NoError(t, err)
	return e
}

func TestCreateStampsIDAndTimestamps(t *testing.T) {
	e := newTestEngine(t)
	doc, err := e.Create("Player", Document{"name": "alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc["id"])
	assert.NotNil(t, doc["createdAt"])
	assert.Equal(t, false, doc["online"])
}

func TestUpdateDropsIDField(t *testing.T) {
	e := newTestEngine(t)
	doc, err := e.Create("Player", Document{"name": "alice"})
	require.NoError(t, err)
	id := doc["id"].(string)

	updated, err := e.Update("Player", id, Document{"id": "hijacked", "online": true})
	require.NoError(t, err)
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, true, updated["online"])
}

func TestReadUnknownIDFails(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Read("Player", "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUnknownCollectionFails(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Read("Spaceship", "anything")
	assert.ErrorIs(t, err, models.ErrCollectionUnknown)
}

func TestQueryFiltersAllKeys(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Create("Room", Document{"owner": "bob", "visibility": "public"})
	require.NoError(t, err)
	_, err = e.Create("Room", Document{"owner": "carol", "visibility": "private"})
	require.NoError(t, err)

	results, err := e.Query("Room", Document{"visibility": "public"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0]["owner"])
}

func TestDeleteReturnsDeletedMarker(t *testing.T) {
	e := newTestEngine(t)
	doc, err := e.Create("Game", Document{"gameName": "tet"})
	require.NoError(t, err)
	id := doc["id"].(string)

	result, err := e.Delete("Game", id)
	require.NoError(t, err)
	assert.Equal(t, true, result["deleted"])

	_, err = e.Read("Game", id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRoomCollectionResetsOnReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	e, err := NewEngine(path, nil)
	require.NoError(t, err)
	_, err = e.Create("Room", Document{"owner": "bob"})
	require.NoError(t, err)
	_, err = e.Create("Player", Document{"name": "bob"})
	require.NoError(t, err)

	reloaded, err := NewEngine(path, nil)
	require.NoError(t, err)

	rooms, err := reloaded.Query("Room", Document{})
	require.NoError(t, err)
	assert.Empty(t, rooms)

	players, err := reloaded.Query("Player", Document{})
	require.NoError(t, err)
	assert.Len(t, players, 1)
}
