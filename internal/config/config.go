// Package config centralises all environment / flag configuration for the API.
// It should be imported only by `cmd/server` (and test code). Business-logic
// layers receive an already-built Config instance via dependency-injection.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime option the server needs.
// Keep it flat and simple—prefer primitive types over embedding structs.
type Config struct {
	// Network
	Port string

	// Data stores
	MongoURI string
	DBName   string

	// External services
	GitHubToken string // fallback token for unauthenticated probes

	// LLM pool. The primary credential serves architecture and trace calls;
	// the optional secondaries absorb route-relevance calls.
	ProjectID            string
	Location             string
	Model                string
	PrimaryCredentials   string   // credentials file; empty for ambient auth
	SecondaryCredentials []string // zero or more credentials files

	// Server tuning
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogPretty    bool
}

// Load parses the environment (and an optional .env file) into Config.
// It panics on missing critical variables so mis-configurations fail fast.
func Load() Config {
	// godotenv.Load() is a no-op if .env doesn't exist—safe in production.
	_ = godotenv.Load()

	return Config{
		Port:                 getEnv("PORT", "8080"),
		MongoURI:             must("MONGODB_URI"),
		DBName:               getEnv("MONGODB_DB", "repolens"),
		GitHubToken:          os.Getenv("GITHUB_TOKEN"),
		ProjectID:            must("GCP_PROJECT_ID"),
		Location:             getEnv("GCP_LOCATION", "us-central1"),
		Model:                getEnv("LLM_MODEL", "gemini-2.0-flash-lite-001"),
		PrimaryCredentials:   os.Getenv("LLM_PRIMARY_CREDENTIALS"),
		SecondaryCredentials: splitList(os.Getenv("LLM_SECONDARY_CREDENTIALS")),
		ReadTimeout:          getDuration("READ_TIMEOUT_SEC", 15),
		WriteTimeout:         getDuration("WRITE_TIMEOUT_SEC", 300),
		LogPretty:            os.Getenv("LOG_PRETTY") == "1",
	}
}

// must fetches a required env var or terminates the program.
func must(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("env var %s is required", key)
	}
	return val
}

// getEnv returns env[key] if set, otherwise defaultVal.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getDuration reads an integer (seconds) from env, falling back to defaultSec.
func getDuration(key string, defaultSec int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			return time.Duration(sec) * time.Second
		}
		log.Printf("invalid %s=%q; using default %ds", key, v, defaultSec)
	}
	return time.Duration(defaultSec) * time.Second
}

// splitList parses a comma-separated env value into its non-empty items.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var items []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items
}
