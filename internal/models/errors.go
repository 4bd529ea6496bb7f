package models

import "errors"

// Sentinel errors surfaced by the store and lobby cores. Dispatcher
// handlers convert these into wire.Response error frames; they are never
// written to the wire directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrCollectionUnknown = errors.New("unknown collection")
	ErrNameTaken         = errors.New("name already registered")
	ErrBadCredentials    = errors.New("Invalid username or password.")
	ErrAlreadyOnline     = errors.New("User already online.")
	ErrMissingSession    = errors.New("missing sessionID")
	ErrInvalidSession    = errors.New("invalid or expired session")
	ErrGameNotFound      = errors.New("game not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrAmbiguousRoomID   = errors.New("Ambiguous ID.")
	ErrNotRoomOwner      = errors.New("not the room owner")
	ErrRoleTaken         = errors.New("role already taken")
	ErrRoomFull          = errors.New("room is full")
	ErrMissingClientCode = errors.New("client.py missing from game folder")
	ErrUploadFileCount   = errors.New("upload-game requires exactly two files")
)
