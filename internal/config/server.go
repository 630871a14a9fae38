package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Room persistence. When PostgresDSN is set the postgres store is used;
	// otherwise RoomFilePath selects the JSON file store; with neither set
	// the server runs on the in-memory store only.
	PostgresDSN  string `env:"POSTGRES_DSN"`
	RoomFilePath string `env:"ROOM_FILE_PATH"`

	PersistFlushInterval time.Duration `env:"PERSIST_FLUSH_INTERVAL" envDefault:"2s"`

	MaxPlayersPerRoom int           `env:"MAX_PLAYERS_PER_ROOM" envDefault:"4"`
	RoomMaxAge        time.Duration `env:"ROOM_MAX_AGE" envDefault:"2h"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`

	DisconnectBuffer time.Duration `env:"DISCONNECT_BUFFER" envDefault:"5s"`
	DisconnectGrace  time.Duration `env:"DISCONNECT_GRACE" envDefault:"60s"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
