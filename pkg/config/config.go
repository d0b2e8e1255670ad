// Package config loads the connection settings for a migration from a flat
// TOML file, optionally completed by the [client] section of a MySQL option
// file.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

const (
	KeyUser       = "db_user"
	KeyPassword   = "db_password"
	KeyEndpoint   = "db_endpoint"
	KeyPort       = "db_port"
	KeyName       = "db_name"
	KeySQLitePath = "sqlite_db_relpath"
	KeyTLSMode    = "tls_mode"

	DefaultPort    = 3306
	DefaultTLSMode = "PREFERRED"
)

var (
	ErrEmptyValue  = errors.New("can't be empty string")
	ErrMissingKey  = errors.New("is required")
	ErrInvalidPort = errors.New("must be a port between 1 and 65535")
)

var requiredKeys = []string{KeyUser, KeyEndpoint, KeyName, KeySQLitePath}

var tlsModes = []string{"DISABLED", "PREFERRED", "REQUIRED", "VERIFY_CA", "VERIFY_IDENTITY"}

// Config holds the target connection settings and the location of the
// source file.
type Config struct {
	User          string
	Password      string
	Endpoint      string
	Port          int
	Name          string
	SQLiteRelPath string
	TLSMode       string

	// Dir is the directory of the file the config was loaded from.
	Dir string

	// raw holds every key as written, so blank values can be reported.
	raw map[string]string
}

// clientKeys maps [client] option file keys to config keys.
var clientKeys = map[string]string{
	"user":     KeyUser,
	"password": KeyPassword,
	"host":     KeyEndpoint,
	"port":     KeyPort,
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	return LoadWithClientFile(path, "")
}

// LoadWithClientFile is like Load, but db_user, db_password, db_endpoint and
// db_port that the config file leaves out are taken from the [client]
// section of the MySQL option file at clientFile, e.g. ~/.my.cnf.
func LoadWithClientFile(path, clientFile string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	raw, err := readTOML(abs)
	if err != nil {
		return nil, err
	}
	if clientFile != "" {
		client, err := readClientFile(clientFile)
		if err != nil {
			return nil, err
		}
		for key, val := range client {
			if _, ok := raw[key]; !ok {
				raw[key] = val
			}
		}
	}
	cfg := &Config{
		Dir: filepath.Dir(abs),
		raw: raw,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// readTOML returns the top level keys of a TOML file as strings. Integers
// are formatted in base 10; any other non-string value is an error.
func readTOML(path string) (map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	raw := make(map[string]string)
	for _, key := range v.AllKeys() {
		switch val := v.Get(key).(type) {
		case string:
			raw[key] = val
		case int64:
			raw[key] = strconv.FormatInt(val, 10)
		case int:
			raw[key] = strconv.Itoa(val)
		default:
			return nil, fmt.Errorf("configuration: '%s' must be a string or an integer, got %T", key, val)
		}
	}
	return raw, nil
}

func readClientFile(path string) (map[string]string, error) {
	file, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client option file: %w", err)
	}
	out := make(map[string]string)
	if !file.HasSection("client") {
		return out, nil
	}
	section := file.Section("client")
	for iniKey, key := range clientKeys {
		if section.HasKey(iniKey) {
			out[key] = section.Key(iniKey).String()
		}
	}
	return out, nil
}

// Validate checks the loaded keys and fills the typed fields. Every string
// value that is present must be non-blank.
func (c *Config) Validate() error {
	if c.raw == nil {
		c.raw = c.asMap()
	}
	for _, key := range slices.Sorted(maps.Keys(c.raw)) {
		if strings.TrimSpace(c.raw[key]) == "" {
			return fmt.Errorf("configuration: '%s' %w", key, ErrEmptyValue)
		}
	}
	for _, key := range requiredKeys {
		if _, ok := c.raw[key]; !ok {
			return fmt.Errorf("configuration: '%s' %w", key, ErrMissingKey)
		}
	}
	c.User = c.raw[KeyUser]
	c.Password = c.raw[KeyPassword]
	c.Endpoint = c.raw[KeyEndpoint]
	c.Name = c.raw[KeyName]
	c.SQLiteRelPath = c.raw[KeySQLitePath]

	c.Port = DefaultPort
	if p, ok := c.raw[KeyPort]; ok {
		port, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("configuration: '%s' %w, got %q", KeyPort, ErrInvalidPort, p)
		}
		c.Port = port
	}

	c.TLSMode = DefaultTLSMode
	if mode, ok := c.raw[KeyTLSMode]; ok {
		mode = strings.ToUpper(strings.TrimSpace(mode))
		if !slices.Contains(tlsModes, mode) {
			return fmt.Errorf("configuration: '%s' must be one of %s, got %q", KeyTLSMode, strings.Join(tlsModes, ", "), mode)
		}
		c.TLSMode = mode
	}
	return nil
}

// asMap is used when a Config is built in code rather than loaded.
func (c *Config) asMap() map[string]string {
	m := map[string]string{
		KeyUser:       c.User,
		KeyEndpoint:   c.Endpoint,
		KeyName:       c.Name,
		KeySQLitePath: c.SQLiteRelPath,
	}
	if c.Password != "" {
		m[KeyPassword] = c.Password
	}
	if c.Port != 0 {
		m[KeyPort] = strconv.Itoa(c.Port)
	}
	if c.TLSMode != "" {
		m[KeyTLSMode] = c.TLSMode
	}
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}

// DSN returns a go-sql-driver/mysql DSN for the target database.
func (c *Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Endpoint, strconv.Itoa(c.Port))
	cfg.DBName = c.Name
	return cfg.FormatDSN()
}

// SQLitePath returns sqlite_db_relpath resolved against base. When base is
// empty the directory of the config file is used.
func (c *Config) SQLitePath(base string) string {
	if filepath.IsAbs(c.SQLiteRelPath) {
		return c.SQLiteRelPath
	}
	if base == "" {
		base = c.Dir
	}
	return filepath.Join(base, c.SQLiteRelPath)
}

// String is safe to log.
func (c *Config) String() string {
	return fmt.Sprintf("%s@%s/%s (tls=%s) source=%s", c.User, net.JoinHostPort(c.Endpoint, strconv.Itoa(c.Port)), c.Name, c.TLSMode, c.SQLiteRelPath)
}
