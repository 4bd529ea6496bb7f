// Package config loads process configuration from the environment,
// mirroring the teacher's config.LoadFromEnv (aggregate missing-var errors,
// sensible defaults) and adding the env vars spec.md §6 names.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store configures the store process.
type Store struct {
	Host      string
	Port      int
	DataPath  string
	AdminAddr string
}

// Lobby configures either lobby variant (developer or player).
type Lobby struct {
	Host           string
	Port           int
	StoreHost      string
	StorePort      int
	GameFolderRoot string
	PortBase       int
	AdminAddr      string
	RedisAddr      string
}

// Room configures the per-match Tetris process, populated from its CLI
// args rather than the environment (spec §6: "host port roomId [seed]").
type Room struct {
	Host    string
	Port    int
	RoomID  string
	Seed    int64
	HasSeed bool
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvIntDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

// LoadStore reads SERVER_HOST, DB_HOST, DB_PORT, STORE_DATA_PATH.
func LoadStore() (Store, error) {
	var missing []string

	dbPort, err := getenvIntDefault("DB_PORT", 9000)
	if err != nil {
		return Store{}, err
	}
	dataPath := getenvDefault("STORE_DATA_PATH", "")
	if dataPath == "" {
		missing = append(missing, "STORE_DATA_PATH")
	}
	if len(missing) > 0 {
		return Store{}, fmt.Errorf("missing/invalid env: %s", strings.Join(missing, ", "))
	}

	return Store{
		Host:      getenvDefault("DB_HOST", getenvDefault("SERVER_HOST", "0.0.0.0")),
		Port:      dbPort,
		DataPath:  dataPath,
		AdminAddr: getenvDefault("ADMIN_ADDR", ""),
	}, nil
}

// LoadDeveloperLobby reads the developer-lobby env vars.
func LoadDeveloperLobby() (Lobby, error) {
	return loadLobby("DEVELOPER_PORT", 8001)
}

// LoadPlayerLobby reads the player-lobby env vars.
func LoadPlayerLobby() (Lobby, error) {
	return loadLobby("PLAYER_PORT", 8002)
}

func loadLobby(portVar string, portDefault int) (Lobby, error) {
	port, err := getenvIntDefault(portVar, portDefault)
	if err != nil {
		return Lobby{}, err
	}
	storePort, err := getenvIntDefault("DB_PORT", 9000)
	if err != nil {
		return Lobby{}, err
	}
	portBase, err := getenvIntDefault("GAME_SERVER_PORT_BASE", 9500)
	if err != nil {
		return Lobby{}, err
	}

	return Lobby{
		Host:           getenvDefault("SERVER_HOST", "0.0.0.0"),
		Port:           port,
		StoreHost:      getenvDefault("DB_HOST", "127.0.0.1"),
		StorePort:      storePort,
		GameFolderRoot: getenvDefault("GAME_FOLDER_ROOT", "game"),
		PortBase:       portBase,
		AdminAddr:      getenvDefault("ADMIN_ADDR", ""),
		RedisAddr:      getenvDefault("REDIS_ADDR", ""),
	}, nil
}
