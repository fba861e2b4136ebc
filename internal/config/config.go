// Package config loads environment-keyed Sparkify configuration files.
//
// A config file is a JSON (or YAML) document whose top-level keys name
// environments, each holding a flat map of settings:
//
//	{
//	  "DEFAULT": {"LOG_FILE": "etl.log", "DB_HOST": "127.0.0.1", ...},
//	  "DB":      {"LOG_FILE": "db.log", ...}
//	}
//
// Any setting can be overridden by a SPARKIFY_<KEY> environment variable.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/justestif/sparkify-etl/internal/logging"
)

const (
	// DefaultPath is used when no config file is given.
	DefaultPath = "./config.json"

	// DefaultEnvironment is selected when the requested environment is unknown.
	DefaultEnvironment = "DEFAULT"
)

// ErrUnknownEnvironment is returned when neither the requested environment
// nor DEFAULT exists in the config file.
var ErrUnknownEnvironment = errors.New("unknown config environment")

// Environment holds the settings of one environment. Tags drive the
// SPARKIFY_* overrides and defaults.
type Environment struct {
	LogFile  string `env:"SPARKIFY_LOG_FILE"`
	LogLevel string `env:"SPARKIFY_LOG_LEVEL" env-default:"INFO"`

	DBHost     string `env:"SPARKIFY_DB_HOST" env-default:"localhost"`
	DBPort     string `env:"SPARKIFY_DB_PORT" env-default:"5432"`
	DBName     string `env:"SPARKIFY_DB_NAME" env-default:"sparkifydb"`
	DBUser     string `env:"SPARKIFY_DB_USER"`
	DBPassword string `env:"SPARKIFY_DB_PASSWORD"`
	DBSSLMode  string `env:"SPARKIFY_DB_SSLMODE" env-default:"disable"`

	LandingName     string `env:"SPARKIFY_DB_LANDING_NAME"`
	LandingUser     string `env:"SPARKIFY_DB_LANDING_USER"`
	LandingPassword string `env:"SPARKIFY_DB_LANDING_PASSWORD"`

	SongData string `env:"SPARKIFY_SONG_DATA"`
	LogData  string `env:"SPARKIFY_LOG_DATA"`

	MetricsFile string `env:"SPARKIFY_METRICS_FILE"`
	APIAddr     string `env:"SPARKIFY_API_ADDR" env-default:"127.0.0.1:8080"`
}

// fields maps config labels to the Environment fields they populate.
func (e *Environment) fields() map[string]*string {
	return map[string]*string{
		"LOG_FILE":            &e.LogFile,
		"LOG_LEVEL":           &e.LogLevel,
		"DB_HOST":             &e.DBHost,
		"DB_PORT":             &e.DBPort,
		"DB_NAME":             &e.DBName,
		"DB_USER":             &e.DBUser,
		"DB_PASSWORD":         &e.DBPassword,
		"DB_SSLMODE":          &e.DBSSLMode,
		"DB_LANDING_NAME":     &e.LandingName,
		"DB_LANDING_USER":     &e.LandingUser,
		"DB_LANDING_PASSWORD": &e.LandingPassword,
		"SONG_DATA":           &e.SongData,
		"LOG_DATA":            &e.LogData,
		"METRICS_FILE":        &e.MetricsFile,
		"API_ADDR":            &e.APIAddr,
	}
}

// Manager exposes the settings of the selected environment.
type Manager struct {
	Environment

	env    string
	path   string
	values map[string]string
	logger *zap.Logger
}

// Load reads the config file at path and selects env. An empty or unknown
// env falls back to DEFAULT.
func Load(path, env string) (*Manager, error) {
	if path == "" {
		path = DefaultPath
	}

	envs, err := readFile(path)
	if err != nil {
		return nil, err
	}

	selected := env
	if _, ok := envs[selected]; selected == "" || !ok {
		selected = DefaultEnvironment
	}
	section, ok := envs[selected]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownEnvironment, env, strings.Join(names(envs), ", "))
	}

	m := &Manager{
		env:    selected,
		path:   path,
		values: make(map[string]string, len(section)),
		logger: zap.NewNop(),
	}
	for label, v := range section {
		m.values[label] = stringify(v)
	}

	fields := m.Environment.fields()
	for label, field := range fields {
		if v, ok := m.values[label]; ok {
			*field = v
		}
	}
	if err := cleanenv.ReadEnv(&m.Environment); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}
	for label, field := range fields {
		if _, inFile := m.values[label]; inFile || *field != "" {
			m.values[label] = *field
		}
	}

	return m, nil
}

func readFile(path string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var envs map[string]map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &envs)
	default:
		err = json.Unmarshal(data, &envs)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return envs, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func names(envs map[string]map[string]any) []string {
	out := make([]string, 0, len(envs))
	for name := range envs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Env returns the name of the selected environment.
func (m *Manager) Env() string {
	return m.env
}

// NewLogger builds the logger described by LOG_FILE and LOG_LEVEL and
// uses it for the manager's own warnings.
func (m *Manager) NewLogger() (*zap.Logger, error) {
	logger, err := logging.New(m.LogFile, m.LogLevel)
	if err != nil {
		return nil, err
	}
	m.logger = logger
	logger.Info("config set up", zap.String("env", m.env), zap.String("path", m.path))
	if wd, err := os.Getwd(); err == nil {
		logger.Debug("working directory", zap.String("cwd", wd))
	}
	return logger, nil
}

// Get returns the value configured for label. A label that is not
// configured is logged and reported as absent.
func (m *Manager) Get(label string) (string, bool) {
	v, ok := m.values[label]
	if !ok {
		m.logger.Warn("config label not configured", zap.String("label", label), zap.String("env", m.env))
	}
	return v, ok
}

// ConnString returns the keyword/value connection string of the
// application database.
func (m *Manager) ConnString() string {
	return connString(m.DBHost, m.DBPort, m.DBName, m.DBUser, m.DBPassword, m.DBSSLMode)
}

// LandingConnString returns the connection string of the landing database,
// the pre-existing database used to drop and create the application one.
func (m *Manager) LandingConnString() string {
	return connString(m.DBHost, m.DBPort, m.LandingName, m.LandingUser, m.LandingPassword, m.DBSSLMode)
}

func connString(host, port, dbname, user, password, sslmode string) string {
	pairs := [][2]string{
		{"host", host},
		{"port", port},
		{"dbname", dbname},
		{"user", user},
		{"password", password},
		{"sslmode", sslmode},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+"="+quoteValue(p[1]))
	}
	return strings.Join(parts, " ")
}

var valueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quoteValue quotes a keyword/value connection string value when needed.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	return "'" + valueEscaper.Replace(v) + "'"
}
