package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCRAG_"

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the given .env files (".env" when none are named; missing
// files are ignored) and finally the process environment. The process
// environment wins over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv, err := readDotenv(envFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDotenv(files []string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	merged := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := merged[k]; !seen {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

func applyEnv(cfg *Config, lookup func(string) string) error {
	str := func(name string, dst *string) {
		if v := lookup(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v := lookup(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := lookup(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v := lookup(EnvPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	// The conventional OpenAI variable is honoured as a fallback.
	if v := lookup("OPENAI_API_KEY"); v != "" && cfg.AI.APIKey == "" {
		cfg.AI.APIKey = v
	}
	str("API_KEY", &cfg.AI.APIKey)
	if v := lookup(EnvPrefix + "HOST"); v != "" {
		cfg.AI.EmbeddingHost, cfg.AI.VisionHost = v, v
	}
	str("EMBEDDING_HOST", &cfg.AI.EmbeddingHost)
	str("VISION_HOST", &cfg.AI.VisionHost)
	str("EMBEDDING_MODEL", &cfg.AI.EmbeddingModel)
	str("VISION_MODEL", &cfg.AI.VisionModel)
	num("EMBEDDING_DIMENSION", &cfg.AI.EmbeddingDimension)

	str("INDEX_BACKEND", &cfg.Index.Backend)
	str("INDEX_PATH", &cfg.Index.Path)
	flag("INDEX_IN_MEMORY", &cfg.Index.InMemory)
	str("FINGERPRINT_PATH", &cfg.Index.FingerprintPath)
	str("QDRANT_HOST", &cfg.Index.Qdrant.Host)
	num("QDRANT_PORT", &cfg.Index.Qdrant.Port)
	str("QDRANT_API_KEY", &cfg.Index.Qdrant.APIKey)
	flag("QDRANT_TLS", &cfg.Index.Qdrant.UseTLS)

	flag("CACHE_ENABLED", &cfg.Cache.Enabled)
	str("CACHE_PATH", &cfg.Cache.Path)
	dur("CACHE_SEARCH_TTL", &cfg.Cache.SearchTTL)
	dur("CACHE_SESSION_TTL", &cfg.Cache.SessionTTL)

	num("SEARCH_WORKERS", &cfg.Search.Workers)
	str("UPLOAD_DIR", &cfg.Pipeline.UploadDir)
	num("EMBED_WORKERS", &cfg.Pipeline.EmbedWorkers)
	num("MAX_ATTEMPTS", &cfg.Pipeline.MaxAttempts)
	dur("RETRY_DELAY", &cfg.Pipeline.RetryDelay)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)

	return errors.Join(errs...)
}
