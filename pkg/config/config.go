// Package config loads engine configuration from an optional YAML file with
// CADENZA_* environment variable overrides.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Search    SearchConfig    `koanf:"search"`
	Database  DatabaseConfig  `koanf:"database"`
	Audit     AuditConfig     `koanf:"audit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Templates TemplatesConfig `koanf:"templates"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // ollama
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
}

type SearchConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Provider string `koanf:"provider"` // inmemory, qdrant

	QdrantAddr       string `koanf:"qdrant_addr"`
	QdrantCollection string `koanf:"qdrant_collection"`
	EmbedderProvider string `koanf:"embedder_provider"` // ollama, hash
	EmbedderBaseURL  string `koanf:"embedder_base_url"`
	EmbedderModel    string `koanf:"embedder_model"`
	VectorSize       uint64 `koanf:"vector_size"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn"` // sqlite path; empty means in-memory store
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type TemplatesConfig struct {
	Dir string `koanf:"dir"`
}

// Load reads the config file (when path is non-empty), then applies
// environment overrides (CADENZA_LLM_MODEL -> llm.model).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("server.addr", ":8080")
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "llama3.2")
	k.Set("llm.base_url", "http://localhost:11434")

	k.Set("search.enabled", true)
	k.Set("search.provider", "inmemory")
	k.Set("search.qdrant_addr", "localhost:6334")
	k.Set("search.qdrant_collection", "cadenza")
	k.Set("search.embedder_provider", "hash")
	k.Set("search.embedder_base_url", "http://localhost:11434")
	k.Set("search.embedder_model", "nomic-embed-text")
	k.Set("search.vector_size", 256)

	k.Set("database.driver", "sqlite")
	k.Set("audit.enabled", false)
	k.Set("telemetry.exporter", "stdout")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (CADENZA_SERVER_ADDR -> server.addr)
	if err := k.Load(env.Provider("CADENZA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CADENZA_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
