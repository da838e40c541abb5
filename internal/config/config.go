// Package config provides configuration loading for the switchboard service.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. Vendor credentials (LLM, blob storage, cache, CRM)
// use their documented flat environment names; everything else follows the
// SECTION_FIELD convention.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds the complete switchboard configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Blob       BlobConfig       `koanf:"blob"`
	Cache      CacheConfig      `koanf:"cache"`
	CRM        CRMConfig        `koanf:"crm"`
	Redirect   RedirectConfig   `koanf:"redirect"`
	Identity   IdentityConfig   `koanf:"identity"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// ExtractionConfig holds PDF extraction and LLM configuration.
type ExtractionConfig struct {
	VisionKey   string        `koanf:"vision_key"`  // UNDERWRITE_IQ_VISION_KEY
	Model       string        `koanf:"model"`       // PARSE_MODEL override
	Mode        string        `koanf:"mode"`        // PARSE_MODE: auto, ocr, vision
	BaseURL     string        `koanf:"base_url"`    // LLM API base
	OCRBaseURL  string        `koanf:"ocr_base_url"`
	OCRKey      string        `koanf:"ocr_key"`
	CallTimeout time.Duration `koanf:"call_timeout"` // per-LLM-call soft limit
}

// BlobConfig holds object storage configuration.
type BlobConfig struct {
	Token   string `koanf:"token"` // BLOB_READ_WRITE_TOKEN
	BaseURL string `koanf:"base_url"`
}

// CacheConfig holds dedupe cache configuration. Both values are optional;
// without them the pipeline runs with deduplication disabled.
type CacheConfig struct {
	RESTURL string `koanf:"rest_url"` // UPSTASH_REDIS_REST_URL
	Token   string `koanf:"token"`    // UPSTASH_REDIS_REST_TOKEN
}

// CRMConfig holds the downstream CRM target.
type CRMConfig struct {
	APIBase    string `koanf:"api_base"`    // GHL_API_BASE
	PrivateKey string `koanf:"private_key"` // GHL_PRIVATE_API_KEY
	LocationID string `koanf:"location_id"` // GHL_LOCATION_ID
}

// RedirectConfig holds the marketing redirect targets.
type RedirectConfig struct {
	FundableURL    string `koanf:"fundable_url"`     // REDIRECT_URL_FUNDABLE
	NotFundableURL string `koanf:"not_fundable_url"` // REDIRECT_URL_NOT_FUNDABLE
}

// IdentityConfig holds identity gate configuration.
type IdentityConfig struct {
	VerificationEnabled bool `koanf:"verification_enabled"`
}

// RedisAddr derives a redis wire address from the Upstash REST URL.
// Upstash exposes the redis protocol on the same hostname over TLS,
// with the REST token as password.
func (c CacheConfig) RedisAddr() (string, bool) {
	if c.RESTURL == "" || c.Token == "" {
		return "", false
	}
	u, err := url.Parse(c.RESTURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":6379"
	}
	return host, true
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Extraction.Mode {
	case "auto", "ocr", "vision":
	default:
		return fmt.Errorf("invalid parse mode %q (want auto, ocr, or vision)", c.Extraction.Mode)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 300 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Extraction.Mode == "" {
		cfg.Extraction.Mode = "auto"
	}
	if cfg.Extraction.BaseURL == "" {
		cfg.Extraction.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Extraction.CallTimeout == 0 {
		cfg.Extraction.CallTimeout = 60 * time.Second
	}
	if cfg.Blob.BaseURL == "" {
		cfg.Blob.BaseURL = "https://blob.vercel-storage.com"
	}
	if cfg.CRM.APIBase == "" {
		cfg.CRM.APIBase = "https://services.leadconnectorhq.com"
	}
}

// applyVendorEnv overlays the documented flat environment names. These take
// precedence over both the YAML file and SECTION_FIELD variables so that the
// service honors the names its deploy targets actually set.
func applyVendorEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Extraction.VisionKey, "UNDERWRITE_IQ_VISION_KEY")
	set(&cfg.Extraction.Model, "PARSE_MODEL")
	set(&cfg.Extraction.Mode, "PARSE_MODE")
	set(&cfg.Extraction.OCRBaseURL, "OCR_API_BASE")
	set(&cfg.Extraction.OCRKey, "OCR_API_KEY")
	set(&cfg.Blob.Token, "BLOB_READ_WRITE_TOKEN")
	set(&cfg.Cache.RESTURL, "UPSTASH_REDIS_REST_URL")
	set(&cfg.Cache.Token, "UPSTASH_REDIS_REST_TOKEN")
	set(&cfg.CRM.APIBase, "GHL_API_BASE")
	set(&cfg.CRM.PrivateKey, "GHL_PRIVATE_API_KEY")
	set(&cfg.CRM.LocationID, "GHL_LOCATION_ID")
	set(&cfg.Redirect.FundableURL, "REDIRECT_URL_FUNDABLE")
	set(&cfg.Redirect.NotFundableURL, "REDIRECT_URL_NOT_FUNDABLE")

	// Gate is on unless explicitly disabled.
	cfg.Identity.VerificationEnabled = os.Getenv("IDENTITY_VERIFICATION_ENABLED") != "false"
}
