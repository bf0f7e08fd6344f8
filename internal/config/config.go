package config

import (
	"os"
	"strings"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret string

	LogLevel string // debug|info|warn|error

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Optional seed account so a fresh database has a usable teacher login.
	SeedTeacherUser     string
	SeedTeacherPassHash string // bcrypt
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:                mode,
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		DBDriver:            envOr("DB_DRIVER", "sqlite"),
		DBDSN:               envOr("DB_DSN", ""),
		AuthHMACSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		CORSOriginsOnline:   csvOr("CORS_ORIGINS_ONLINE", "https://examlink.mindengage.ai"),
		CORSOriginsOffline:  csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
		SeedTeacherUser:     envOr("SEED_TEACHER_USER", ""),
		SeedTeacherPassHash: os.Getenv("SEED_TEACHER_PASS_HASH"),
	}
}

func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
