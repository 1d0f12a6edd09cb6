package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries the environment-driven settings shared by both binaries.
// Flags in the mains override these values.
//
// Env:
//
//	API_URL, AUTH_TOKEN, USER_ID, CONSUL_ADDR, ARCHIVE_PATH
type Config struct {
	APIURL      string // base URL for dispatch, registry and the event stream
	AuthToken   string // optional bearer token for HTTP and the ws dial
	UserID      string // user identifier attached to dispatch requests
	ConsulAddr  string // optional, resolves APIURL when it is unset
	ArchivePath string // sqlite session archive, empty disables it
}

const DefaultAPIURL = "http://127.0.0.1:3001"

// Load reads .env (when present) and the environment.
func Load() Config {
	_ = loadDotEnv()
	return Config{
		APIURL:      getenv("API_URL", ""),
		AuthToken:   os.Getenv("AUTH_TOKEN"),
		UserID:      getenv("USER_ID", "operator"),
		ConsulAddr:  os.Getenv("CONSUL_ADDR"),
		ArchivePath: os.Getenv("ARCHIVE_PATH"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
