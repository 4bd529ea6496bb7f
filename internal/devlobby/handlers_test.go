package devlobby

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/marnhollow/arcadehost/internal/lobbycore"
	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/session"
	"github.com/marnhollow/arcadehost/internal/store"
	"github.com/marnhollow/arcadehost/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestLobby wires a Lobby against a real in-process store, the same way
// cmd/devlobby does, and returns it alongside a live session for "owner".
func newTestLobby(t *testing.T) (*Lobby, string) {
	t.Helper()

	engine, err := store.NewEngine("", nil)
	require.NoError(t, err)
	srv := &store.Server{Engine: engine}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx, ln)

	client := store.NewClient(ln.Addr().String())
	sessions := session.NewManager()
	core := &lobbycore.Core{Collection: "Developer", Store: client, Sessions: sessions, Log: zap.NewNop()}

	l := &Lobby{
		Core:     core,
		Store:    client,
		GameRoot: t.TempDir(),
		Log:      zap.NewNop(),
	}

	sess := sessions.Create("dev-1", "owner")
	return l, sess.SessionID
}

func encodedFile(name, content string) gameFile {
	return gameFile{Filename: name, Content: base64.StdEncoding.EncodeToString([]byte(content))}
}

func reqJSON(t *testing.T, v any) wire.Request {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return wire.Request{Data: data}
}

func TestUploadGameRequiresExactlyTwoFiles(t *testing.T) {
	l, sessionID := newTestLobby(t)

	resp := l.UploadGame(context.Background(), reqJSON(t, uploadGameRequest{
		SessionID: sessionID,
		GameName:  "snek",
		Files:     []gameFile{encodedFile("server.py", "pass")},
	}))

	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Equal(t, models.ErrUploadFileCount.Error(), resp.ErrorMsg)
}

func TestUploadGameWritesFilesUnderBasenameOnly(t *testing.T) {
	l, sessionID := newTestLobby(t)

	resp := l.UploadGame(context.Background(), reqJSON(t, uploadGameRequest{
		SessionID: sessionID,
		GameName:  "snek",
		Files: []gameFile{
			encodedFile("server.py", "server code"),
			// Path traversal attempt: spec §8 property 10 requires this to
			// land inside the game folder under its basename, never escape it.
			encodedFile("../../etc/passwd", "client code"),
		},
	}))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	data := resp.Data.(map[string]any)
	folder := data["folder"].(string)

	assert.FileExists(t, filepath.Join(folder, "server.py"))
	assert.FileExists(t, filepath.Join(folder, "passwd"))

	// Confirm nothing escaped above GameRoot.
	_, err := os.Stat(filepath.Join(l.GameRoot, "..", "etc", "passwd"))
	assert.True(t, os.IsNotExist(err))
}

func TestListGamesFiltersByOwner(t *testing.T) {
	l, sessionID := newTestLobby(t)
	ctx := context.Background()

	require.Equal(t, wire.StatusSuccess, l.UploadGame(ctx, reqJSON(t, uploadGameRequest{
		SessionID: sessionID,
		GameName:  "mine",
		Files:     []gameFile{encodedFile("server.py", "a"), encodedFile("client.py", "b")},
	})).Status)

	// A game owned by someone else must not show up.
	_, err := l.Store.Create("Game", store.Document{"owner": "someone-else", "gameName": "theirs", "folderPath": "/tmp/x"})
	require.NoError(t, err)

	resp := l.ListGames(ctx, reqJSON(t, map[string]string{"sessionID": sessionID}))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	games := resp.Data.(map[string]any)["games"].([]map[string]any)
	require.Len(t, games, 1)
	assert.Equal(t, "mine", games[0]["gameName"])
}

func TestUpdateGameRewritesFilesInPlace(t *testing.T) {
	l, sessionID := newTestLobby(t)
	ctx := context.Background()

	upload := l.UploadGame(ctx, reqJSON(t, uploadGameRequest{
		SessionID: sessionID,
		GameName:  "snek",
		Files:     []gameFile{encodedFile("server.py", "v1"), encodedFile("client.py", "v1")},
	}))
	require.Equal(t, wire.StatusSuccess, upload.Status)
	gameID := upload.Data.(map[string]any)["gameId"].(string)
	folder := upload.Data.(map[string]any)["folder"].(string)

	resp := l.UpdateGame(ctx, reqJSON(t, updateGameRequest{
		SessionID: sessionID,
		GameID:    gameID,
		Files:     []gameFile{encodedFile("server.py", "v2")},
	}))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	raw, err := os.ReadFile(filepath.Join(folder, "server.py"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(raw))
}

func TestUpdateGameUnknownIDFails(t *testing.T) {
	l, sessionID := newTestLobby(t)
	resp := l.UpdateGame(context.Background(), reqJSON(t, updateGameRequest{SessionID: sessionID, GameID: "nope"}))
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Equal(t, models.ErrGameNotFound.Error(), resp.ErrorMsg)
}

func TestDeleteGameRemovesFolderAndRow(t *testing.T) {
	l, sessionID := newTestLobby(t)
	ctx := context.Background()

	upload := l.UploadGame(ctx, reqJSON(t, uploadGameRequest{
		SessionID: sessionID,
		GameName:  "snek",
		Files:     []gameFile{encodedFile("server.py", "a"), encodedFile("client.py", "b")},
	}))
	require.Equal(t, wire.StatusSuccess, upload.Status)
	gameID := upload.Data.(map[string]any)["gameId"].(string)
	folder := upload.Data.(map[string]any)["folder"].(string)

	resp := l.DeleteGame(ctx, reqJSON(t, deleteGameRequest{SessionID: sessionID, GameID: gameID}))
	require.Equal(t, wire.StatusSuccess, resp.Status)

	_, statErr := os.Stat(folder)
	assert.True(t, os.IsNotExist(statErr))

	_, readErr := l.Store.Read("Game", gameID)
	assert.Error(t, readErr)
}
