package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	TLS_DOMAINS       = "" // e.g. "example.com,example2.com"
	MYSQL_DSN         = "" // MySQL will be used if this is set
	SQLITE_FILE       = "gallery.db"
	BIND_ADDRESS      = "0.0.0.0:3000"
	METRICS_ADDRESS   = "127.0.0.1:9100" // Prometheus metrics listen here, empty disables them
	UPLOAD_DIR        = "uploads"        // Used for creating the initial disk bucket
	DEBUG_MODE        = true
	SESSION_SECRET    = ""        // Random per process when empty
	SESSION_MAX_AGE   = 7 * 86400 // 7 days
	MAX_FILE_SIZE     = int64(10 * 1024 * 1024)
	THUMB_SIZE        = 400 // Longest side of generated thumbnails, 0 disables them
	MIN_FREE_SPACE_MB = 100 // Uploads are refused below this on disk buckets
)

// fileConfig mirrors the variables above; only non-empty values override the defaults
type fileConfig struct {
	TLSDomains     string  `yaml:"tls_domains"`
	MySQLDSN       string  `yaml:"mysql_dsn"`
	SQLiteFile     string  `yaml:"sqlite_file"`
	BindAddress    string  `yaml:"bind_address"`
	MetricsAddress *string `yaml:"metrics_address"`
	UploadDir      string  `yaml:"upload_dir"`
	DebugMode      *bool   `yaml:"debug_mode"`
	SessionSecret  string  `yaml:"session_secret"`
	SessionMaxAge  int     `yaml:"session_max_age"`
	MaxFileSize    int64   `yaml:"max_file_size"`
	ThumbSize      *int    `yaml:"thumb_size"`
	MinFreeSpaceMB *int    `yaml:"min_free_space_mb"`
}

func init() {
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		if err := LoadFile(file); err != nil {
			panic(err)
		}
	}
	readEnv()
}

// LoadFile applies a YAML config file on top of the current values.
// Environment variables still win, as they are re-read afterwards.
func LoadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var fc fileConfig
	if err = yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config %s: %w", filename, err)
	}
	setString(fc.TLSDomains, &TLS_DOMAINS)
	setString(fc.MySQLDSN, &MYSQL_DSN)
	setString(fc.SQLiteFile, &SQLITE_FILE)
	setString(fc.BindAddress, &BIND_ADDRESS)
	if fc.MetricsAddress != nil {
		METRICS_ADDRESS = *fc.MetricsAddress
	}
	setString(fc.UploadDir, &UPLOAD_DIR)
	setString(fc.SessionSecret, &SESSION_SECRET)
	if fc.DebugMode != nil {
		DEBUG_MODE = *fc.DebugMode
	}
	if fc.SessionMaxAge > 0 {
		SESSION_MAX_AGE = fc.SessionMaxAge
	}
	if fc.MaxFileSize > 0 {
		MAX_FILE_SIZE = fc.MaxFileSize
	}
	if fc.ThumbSize != nil {
		THUMB_SIZE = *fc.ThumbSize
	}
	if fc.MinFreeSpaceMB != nil {
		MIN_FREE_SPACE_MB = *fc.MinFreeSpaceMB
	}
	readEnv()
	return nil
}

func readEnv() {
	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	if v, ok := os.LookupEnv("METRICS_ADDRESS"); ok {
		METRICS_ADDRESS = v
	}
	readEnvString("UPLOAD_DIR", &UPLOAD_DIR)
	readEnvString("SESSION_SECRET", &SESSION_SECRET)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvInt("SESSION_MAX_AGE", &SESSION_MAX_AGE)
	readEnvInt64("MAX_FILE_SIZE", &MAX_FILE_SIZE)
	readEnvInt("THUMB_SIZE", &THUMB_SIZE)
	readEnvInt("MIN_FREE_SPACE_MB", &MIN_FREE_SPACE_MB)
}

func setString(v string, value *string) {
	if v != "" {
		*value = v
	}
}

func readEnvString(name string, value *string) {
	setString(os.Getenv(name), value)
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = i
}

func readEnvInt64(name string, value *int64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}
	*value = i
}
