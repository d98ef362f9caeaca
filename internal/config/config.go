package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/xilogin/internal/constants"
)

// VersionLock selects how the client version string is checked.
type VersionLock int

const (
	VersionLockDisabled VersionLock = 0
	VersionLockExact    VersionLock = 1
	VersionLockMinimum  VersionLock = 2
)

// LoginServer holds all configuration for the login server.
type LoginServer struct {
	LogLevel string `yaml:"log_level"`

	// Network
	BindAddress       string `yaml:"bind_address"`
	AuthPort          int    `yaml:"auth_port"`
	ViewPort          int    `yaml:"view_port"`
	DataPort          int    `yaml:"data_port"`
	SearchPort        int    `yaml:"search_port"`
	ReceiveBufferSize int    `yaml:"receive_buffer_size"`
	Backlog           int    `yaml:"backlog"`
	MaxClients        int    `yaml:"max_clients"` // per listener, 0 = unlimited

	// World
	ServerName            string      `yaml:"server_name"`
	MaintenanceMode       bool        `yaml:"maintenance_mode"`
	ClientVersion         string      `yaml:"client_version"`
	VersionLock           VersionLock `yaml:"version_lock"`
	ServerPopulationLimit int         `yaml:"server_population_limit"` // 0 = unlimited
	LoginLimit            int         `yaml:"login_limit"`             // sessions per ip, 0 = unlimited

	// Features
	AccountCreation         bool `yaml:"account_creation"`
	CharacterDeletion       bool `yaml:"character_deletion"`
	NewCharacterCutscene    bool `yaml:"new_character_cutscene"`
	LogUserIP               bool `yaml:"log_user_ip"`
	ClearSessionsOnShutdown bool `yaml:"clear_sessions_on_shutdown"`

	// Timing
	CleanupInterval       time.Duration `yaml:"cleanup_interval"`
	CreateLockout         time.Duration `yaml:"create_lockout"`
	CharacterCreatedDelay time.Duration `yaml:"character_created_delay"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Status   StatusConfig   `yaml:"status"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// Transient connection errors are retried this many times.
	MaxRetries uint64        `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig enables the shared create-lockout store.
// When disabled the lockout lives in process memory.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// StatusConfig controls the HTTP status API.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`

	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultLoginServer returns LoginServer config with sensible defaults.
func DefaultLoginServer() LoginServer {
	return LoginServer{
		LogLevel:              "info",
		BindAddress:           "0.0.0.0",
		AuthPort:              constants.DefaultAuthPort,
		ViewPort:              constants.DefaultViewPort,
		DataPort:              constants.DefaultDataPort,
		SearchPort:            54002,
		ReceiveBufferSize:     constants.DefaultReceiveBufferSize,
		Backlog:               constants.DefaultBacklog,
		ServerName:            "Vanadiel",
		ClientVersion:         "30230920_0",
		VersionLock:           VersionLockDisabled,
		AccountCreation:       true,
		CharacterDeletion:     true,
		NewCharacterCutscene:  true,
		CleanupInterval:       30 * time.Second,
		CreateLockout:         5 * time.Minute,
		CharacterCreatedDelay: 0,
		Database: DatabaseConfig{
			Host:       "127.0.0.1",
			Port:       5432,
			User:       "xilogin",
			Password:   "xilogin",
			DBName:     "xilogin",
			SSLMode:    "disable",
			MaxRetries: 3,
			RetryDelay: 200 * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: "xilogin",
		},
		Status: StatusConfig{
			Address: "127.0.0.1:8088",
		},
	}
}

// LoadLoginServer loads login server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadLoginServer(path string) (LoginServer, error) {
	cfg := DefaultLoginServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c LoginServer) Validate() error {
	var errs []error

	for name, port := range map[string]int{
		"auth_port":   c.AuthPort,
		"view_port":   c.ViewPort,
		"data_port":   c.DataPort,
		"search_port": c.SearchPort,
	} {
		if port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s %d out of range", name, port))
		}
	}
	if c.ReceiveBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("receive_buffer_size must be positive"))
	}
	if c.ServerName == "" || len(c.ServerName) > constants.MaxNameLength {
		errs = append(errs, fmt.Errorf("server_name must be 1-%d bytes", constants.MaxNameLength))
	}
	if c.VersionLock < VersionLockDisabled || c.VersionLock > VersionLockMinimum {
		errs = append(errs, fmt.Errorf("version_lock %d must be 0, 1 or 2", c.VersionLock))
	}
	if _, err := c.ExpectedVersion(); err != nil {
		errs = append(errs, err)
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval must be positive"))
	}
	if c.ServerPopulationLimit < 0 || c.LoginLimit < 0 || c.MaxClients < 0 {
		errs = append(errs, fmt.Errorf("limits must not be negative"))
	}

	return errors.Join(errs...)
}

// ExpectedVersion parses ClientVersion the way the client version string is
// parsed: the underscore at index 8 becomes '0'.
func (c LoginServer) ExpectedVersion() (uint32, error) {
	v, err := ParseClientVersion([]byte(c.ClientVersion))
	if err != nil {
		return 0, fmt.Errorf("client_version %q: %w", c.ClientVersion, err)
	}
	return v, nil
}

// ParseClientVersion parses a "YYYYMMDD_N" style version into an integer.
func ParseClientVersion(b []byte) (uint32, error) {
	if len(b) > constants.VersionLength {
		b = b[:constants.VersionLength]
	}
	s := []byte(strings.TrimRight(string(b), "\x00"))
	if len(s) > constants.VersionPlaceholderIndex {
		s[constants.VersionPlaceholderIndex] = '0'
	}
	v, err := strconv.ParseUint(string(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing client version: %w", err)
	}
	return uint32(v), nil
}

// Addr joins the bind address with a port.
func (c LoginServer) Addr(port int) string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(port))
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c LoginServer) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
