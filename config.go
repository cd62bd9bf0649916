package goSession

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/internal/gateway"
	"github.com/MrEthical07/goSession/session"
)

// Config is copied on Build. Mutating a Config after Build has no effect on
// the Client.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Routes   guard.Paths    `yaml:"routes"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Messages MessagesConfig `yaml:"messages"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend and its auth endpoints.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout bounds every request.
	Timeout time.Duration `yaml:"timeout"`
	// RefreshTimeout additionally bounds the shared refresh call. Expiry
	// counts as a refresh failure.
	RefreshTimeout     time.Duration `yaml:"refresh_timeout"`
	UserAgent          string        `yaml:"user_agent"`
	LoginPath          string        `yaml:"login_path"`
	SignupPath         string        `yaml:"signup_path"`
	RefreshPath        string        `yaml:"refresh_path"`
	LogoutPath         string        `yaml:"logout_path"`
	ForgotPasswordPath string        `yaml:"forgot_password_path"`
	ResetPasswordPath  string        `yaml:"reset_password_path"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig selects where the session record is persisted. An explicit
// backend passed to the Builder wins over these settings.
type StorageConfig struct {
	Namespace   string        `yaml:"namespace"`
	FileDir     string        `yaml:"file_dir"`
	RedisPrefix string        `yaml:"redis_prefix"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
MESSAGES CONFIG
====================================
*/

// MessagesConfig holds the fallback texts shown when the backend gives no
// usable error message.
type MessagesConfig struct {
	LoginFailed          string `yaml:"login_failed"`
	SignupFailed         string `yaml:"signup_failed"`
	NoAccessToken        string `yaml:"no_access_token"`
	MalformedResponse    string `yaml:"malformed_response"`
	ForgotPasswordFailed string `yaml:"forgot_password_failed"`
	ResetPasswordFailed  string `yaml:"reset_password_failed"`
	ResetTokenMissing    string `yaml:"reset_token_missing"`
	PasswordMismatch     string `yaml:"password_mismatch"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the settings used by the SkillUp web client.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:            "http://localhost:5000/api",
			Timeout:            30 * time.Second,
			RefreshTimeout:     gateway.DefaultRefreshTimeout,
			UserAgent:          "goSession/1",
			LoginPath:          "/auth/login",
			SignupPath:         "/auth/signup",
			RefreshPath:        gateway.DefaultRefreshPath,
			LogoutPath:         "/auth/logout",
			ForgotPasswordPath: "/auth/forgot-password",
			ResetPasswordPath:  "/auth/reset-password",
		},
		Storage: StorageConfig{
			Namespace:   session.DefaultNamespace,
			RedisPrefix: "gs",
		},
		Routes: guard.DefaultPaths(),
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Messages: MessagesConfig{
			LoginFailed:          "Invalid credentials or server error.",
			SignupFailed:         "Signup failed. Please check your details.",
			NoAccessToken:        "no access token received",
			MalformedResponse:    "Unexpected response from server.",
			ForgotPasswordFailed: "Failed to send reset link. Please try again.",
			ResetPasswordFailed:  "Failed to reset password. The link may have expired.",
			ResetTokenMissing:    "No reset token found. Please request a new link.",
			PasswordMismatch:     "Passwords do not match.",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	if c.API.RefreshTimeout <= 0 {
		return errors.New("API RefreshTimeout must be > 0")
	}
	for name, p := range map[string]string{
		"LoginPath":          c.API.LoginPath,
		"SignupPath":         c.API.SignupPath,
		"RefreshPath":        c.API.RefreshPath,
		"LogoutPath":         c.API.LogoutPath,
		"ForgotPasswordPath": c.API.ForgotPasswordPath,
		"ResetPasswordPath":  c.API.ResetPasswordPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("API " + name + " must start with /")
		}
	}

	// Storage
	if strings.TrimSpace(c.Storage.Namespace) == "" {
		return errors.New("Storage Namespace must not be empty")
	}
	if c.Storage.RedisTTL < 0 {
		return errors.New("Storage RedisTTL must be >= 0")
	}

	// Routes
	for _, p := range []string{c.Routes.Login, c.Routes.AdminHome, c.Routes.InstructorHome, c.Routes.LearnerHome} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Routes paths must start with /")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Messages
	if c.Messages.LoginFailed == "" || c.Messages.SignupFailed == "" {
		return errors.New("Messages LoginFailed and SignupFailed must be set")
	}

	return nil
}
