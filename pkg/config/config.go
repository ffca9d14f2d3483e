package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"rillcast/pkg/validation"

	"gopkg.in/yaml.v2"
)

type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

type CameraDevice struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Facing string `yaml:"facing"`
}

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Media struct {
		Mode           string         `yaml:"mode"` // live | simulated | noop
		SignalURL      string         `yaml:"signal_url"`
		ICEServers     []ICEServer    `yaml:"ice_servers"`
		Cameras        []CameraDevice `yaml:"cameras"`
		FrameInterval  time.Duration  `yaml:"frame_interval"`
		JoinTimeout    time.Duration  `yaml:"join_timeout"`
		PLIInterval    time.Duration  `yaml:"pli_interval"`
		MaxMessageSize int64          `yaml:"max_message_size"`
	} `yaml:"media"`

	Sandbox struct {
		Mode           string        `yaml:"mode"` // http | local
		AppID          string        `yaml:"app_id"`
		BaseURL        string        `yaml:"base_url"`
		SigningSecret  string        `yaml:"signing_secret"`
		TokenTTL       time.Duration `yaml:"token_ttl"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		RetryAttempts  int           `yaml:"retry_attempts"`
	} `yaml:"sandbox"`

	Permissions struct {
		Mode       string `yaml:"mode"` // prompt | grant | deny
		GrantsFile string `yaml:"grants_file"`
	} `yaml:"permissions"`

	Auth struct {
		SignInDelay  time.Duration `yaml:"sign_in_delay"`
		SignOutDelay time.Duration `yaml:"sign_out_delay"`
		UserID       string        `yaml:"user_id"`
		Username     string        `yaml:"username"`
		DisplayName  string        `yaml:"display_name"`
		AvatarURL    string        `yaml:"avatar_url"`
	} `yaml:"auth"`

	Directory struct {
		ListCacheTTL time.Duration `yaml:"list_cache_ttl"`
		EntryTTL     time.Duration `yaml:"entry_ttl"`
	} `yaml:"directory"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server timeouts must be > 0")
	}

	// Media
	switch c.Media.Mode {
	case "live":
		if err := validation.ValidateURL(c.Media.SignalURL, "ws", "wss"); err != nil {
			return fmt.Errorf("media.signal_url: %w", err)
		}
	case "noop", "simulated":
	default:
		return fmt.Errorf("media.mode must be live, simulated or noop, got %q", c.Media.Mode)
	}
	if c.Media.FrameInterval <= 0 {
		return fmt.Errorf("media.frame_interval must be > 0")
	}
	if c.Media.JoinTimeout <= 0 {
		return fmt.Errorf("media.join_timeout must be > 0")
	}
	seen := make(map[string]bool, len(c.Media.Cameras))
	for _, cam := range c.Media.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("media.cameras: id must not be empty")
		}
		if seen[cam.ID] {
			return fmt.Errorf("media.cameras: duplicate id %q", cam.ID)
		}
		seen[cam.ID] = true
	}

	// Sandbox
	switch c.Sandbox.Mode {
	case "http":
		if err := validation.ValidateURL(c.Sandbox.BaseURL, "http", "https"); err != nil {
			return fmt.Errorf("sandbox.base_url: %w", err)
		}
	case "local":
		if c.Sandbox.SigningSecret == "" {
			return fmt.Errorf("sandbox.signing_secret must not be empty when sandbox.mode=local")
		}
	default:
		return fmt.Errorf("sandbox.mode must be http or local, got %q", c.Sandbox.Mode)
	}
	if c.Sandbox.TokenTTL <= 0 {
		return fmt.Errorf("sandbox.token_ttl must be > 0")
	}
	if c.Sandbox.RequestTimeout <= 0 {
		return fmt.Errorf("sandbox.request_timeout must be > 0")
	}
	if c.Sandbox.RetryAttempts < 0 {
		return fmt.Errorf("sandbox.retry_attempts must be >= 0")
	}

	// Permissions
	switch c.Permissions.Mode {
	case "prompt", "grant", "deny":
	default:
		return fmt.Errorf("permissions.mode must be prompt, grant or deny, got %q", c.Permissions.Mode)
	}

	// Auth
	if c.Auth.SignInDelay < 0 || c.Auth.SignOutDelay < 0 {
		return fmt.Errorf("auth delays must be >= 0")
	}
	if c.Auth.UserID == "" || c.Auth.Username == "" {
		return fmt.Errorf("auth.user_id and auth.username must not be empty")
	}

	// Directory / Redis
	if c.Directory.EntryTTL <= 0 {
		return fmt.Errorf("directory.entry_ttl must be > 0")
	}
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Tracing
	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		return fmt.Errorf("tracing.sample_rate must be within [0,1]")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max_size_mb must be > 0 when logging.file is set")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
// A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// AppIDConfigured reports whether sandbox.app_id is a real id. When it is
// not, the http sandbox cannot issue tokens.
func (c *Config) AppIDConfigured() bool {
	return !validation.IsPlaceholderAppID(c.Sandbox.AppID)
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = "127.0.0.1:8090"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 60 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second

	cfg.Media.Mode = "noop"
	cfg.Media.SignalURL = "ws://localhost:8081/ws"
	cfg.Media.ICEServers = []ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	cfg.Media.Cameras = []CameraDevice{
		{ID: "front", Name: "Front Camera", Facing: "front"},
		{ID: "back", Name: "Back Camera", Facing: "back"},
	}
	cfg.Media.FrameInterval = 33 * time.Millisecond
	cfg.Media.JoinTimeout = 15 * time.Second
	cfg.Media.PLIInterval = 3 * time.Second
	cfg.Media.MaxMessageSize = 64 * 1024

	cfg.Sandbox.Mode = "local"
	cfg.Sandbox.AppID = "YOUR_FISHJAM_ID"
	cfg.Sandbox.BaseURL = "https://fishjam.io/api/v1/connect"
	cfg.Sandbox.SigningSecret = "rillcast-sandbox-secret"
	cfg.Sandbox.TokenTTL = time.Hour
	cfg.Sandbox.RequestTimeout = 10 * time.Second
	cfg.Sandbox.RetryAttempts = 2

	cfg.Permissions.Mode = "prompt"
	cfg.Permissions.GrantsFile = defaultGrantsFile()

	cfg.Auth.SignInDelay = 500 * time.Millisecond
	cfg.Auth.SignOutDelay = 300 * time.Millisecond
	cfg.Auth.UserID = "user_1"
	cfg.Auth.Username = "demo_user"
	cfg.Auth.DisplayName = "Demo User"

	cfg.Directory.ListCacheTTL = 2 * time.Second
	cfg.Directory.EntryTTL = 2 * time.Minute

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.PoolSize = 10

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.MaxSizeMB = 50
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 7

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 20
	cfg.RateLimiting.Burst = 40

	return cfg
}

func defaultGrantsFile() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home + "/.rillcast/permissions.yaml"
	}
	return ".rillcast-permissions.yaml"
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("RILLCAST_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if mode := os.Getenv("RILLCAST_MEDIA_MODE"); mode != "" {
		c.Media.Mode = strings.ToLower(mode)
	}
	if url := os.Getenv("RILLCAST_SIGNAL_URL"); url != "" {
		c.Media.SignalURL = url
	}
	if id := os.Getenv("RILLCAST_APP_ID"); id != "" {
		c.Sandbox.AppID = id
	}
	if secret := os.Getenv("RILLCAST_SANDBOX_SECRET"); secret != "" {
		c.Sandbox.SigningSecret = secret
	}
	if mode := os.Getenv("RILLCAST_PERMISSIONS_MODE"); mode != "" {
		c.Permissions.Mode = strings.ToLower(mode)
	}
	if level := os.Getenv("RILLCAST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("RILLCAST_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
}
