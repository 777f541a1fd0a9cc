package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "thirdperson.cfg.json"

// PluginConfig holds the gameplay settings. Keys keep the names server
// owners already have in their files.
type PluginConfig struct {
	CustomTPCommand     string  `json:"CustomTPCommand" mapstructure:"CustomTPCommand"`
	UseOnlyAdmin        bool    `json:"UseOnlyAdmin" mapstructure:"UseOnlyAdmin"`
	OnlyAdminFlag       string  `json:"OnlyAdminFlag" mapstructure:"OnlyAdminFlag"`
	BlockCamera         bool    `json:"BlockCamera" mapstructure:"BlockCamera"`
	UseSmoothCam        bool    `json:"UseSmoothCam" mapstructure:"UseSmoothCam"`
	ThirdPersonDistance float32 `json:"ThirdPersonDistance" mapstructure:"ThirdPersonDistance"`
	ThirdPersonHeight   float32 `json:"ThirdPersonHeight" mapstructure:"ThirdPersonHeight"`
	StripOnUse          bool    `json:"StripOnUse" mapstructure:"StripOnUse"`
}

// SmoothingConfig selects how the smoothed camera interpolates.
// Smoothing modes accepted in smoothing.mode.
const (
	SmoothingFixed = "fixed"
	SmoothingTick  = "tick"
)

type SmoothingConfig struct {
	Mode              string  `json:"mode" mapstructure:"mode"`
	Factor            float32 `json:"factor" mapstructure:"factor"`
	ReferenceTickRate float32 `json:"referenceTickRate" mapstructure:"referenceTickRate"`
	TickRate          float32 `json:"tickRate" mapstructure:"tickRate"`
}

// SQLiteConfig holds sqlite journal settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds postgres journal settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB journal settings
type InfluxConfig struct {
	URL       string `json:"url" mapstructure:"url"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// StorageConfig holds session journal settings
type StorageConfig struct {
	Type          string         `json:"type" mapstructure:"type"`
	FlushInterval time.Duration  `json:"flushInterval" mapstructure:"flushInterval"`
	SQLite        SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres      PostgresConfig `json:"postgres" mapstructure:"postgres"`
	Influx        InfluxConfig   `json:"influx" mapstructure:"influx"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// SetDefaults registers every default value. Load calls it; tests and the
// entrypoint may call it directly to run without a file.
func SetDefaults() {
	viper.SetDefault("CustomTPCommand", "tp")
	viper.SetDefault("UseOnlyAdmin", false)
	viper.SetDefault("OnlyAdminFlag", "@css/slay")
	viper.SetDefault("BlockCamera", true)
	viper.SetDefault("UseSmoothCam", true)
	viper.SetDefault("ThirdPersonDistance", 110)
	viper.SetDefault("ThirdPersonHeight", 76)
	viper.SetDefault("StripOnUse", false)

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./tplogs")

	viper.SetDefault("smoothing.mode", SmoothingFixed)
	viper.SetDefault("smoothing.factor", 0.3)
	viper.SetDefault("smoothing.referenceTickRate", 64)
	viper.SetDefault("smoothing.tickRate", 64)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "thirdperson")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushInterval", "2s")
	viper.SetDefault("storage.sqlite.path", "./tplogs/sessions.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "thirdperson")
	viper.SetDefault("storage.influx.url", "http://localhost:8086")
	viper.SetDefault("storage.influx.token", "")
	viper.SetDefault("storage.influx.org", "thirdperson")
	viper.SetDefault("storage.influx.bucket", "camera_sessions")
	viper.SetDefault("storage.influx.backupDir", "./tplogs")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. On error the
// defaults stay in effect.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetPluginConfig returns the gameplay settings.
func GetPluginConfig() PluginConfig {
	return PluginConfig{
		CustomTPCommand:     viper.GetString("CustomTPCommand"),
		UseOnlyAdmin:        viper.GetBool("UseOnlyAdmin"),
		OnlyAdminFlag:       viper.GetString("OnlyAdminFlag"),
		BlockCamera:         viper.GetBool("BlockCamera"),
		UseSmoothCam:        viper.GetBool("UseSmoothCam"),
		ThirdPersonDistance: float32(viper.GetFloat64("ThirdPersonDistance")),
		ThirdPersonHeight:   float32(viper.GetFloat64("ThirdPersonHeight")),
		StripOnUse:          viper.GetBool("StripOnUse"),
	}
}

// GetSmoothingConfig returns the smoothed camera settings.
func GetSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		Mode:              viper.GetString("smoothing.mode"),
		Factor:            float32(viper.GetFloat64("smoothing.factor")),
		ReferenceTickRate: float32(viper.GetFloat64("smoothing.referenceTickRate")),
		TickRate:          float32(viper.GetFloat64("smoothing.tickRate")),
	}
}

// GetStorageConfig returns the session journal settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		FlushInterval: viper.GetDuration("storage.flushInterval"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
		},
		Influx: InfluxConfig{
			URL:       viper.GetString("storage.influx.url"),
			Token:     viper.GetString("storage.influx.token"),
			Org:       viper.GetString("storage.influx.org"),
			Bucket:    viper.GetString("storage.influx.bucket"),
			BackupDir: viper.GetString("storage.influx.backupDir"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// Validate rejects settings the camera cannot work with.
func Validate() error {
	var errs []error

	p := GetPluginConfig()
	if p.ThirdPersonDistance < 0 {
		errs = append(errs, fmt.Errorf("ThirdPersonDistance must not be negative, got %v", p.ThirdPersonDistance))
	}
	if p.UseOnlyAdmin && p.OnlyAdminFlag == "" {
		errs = append(errs, errors.New("OnlyAdminFlag is required when UseOnlyAdmin is set"))
	}

	s := GetSmoothingConfig()
	if s.Factor <= 0 || s.Factor > 1 {
		errs = append(errs, fmt.Errorf("smoothing.factor must be in (0,1], got %v", s.Factor))
	}
	switch s.Mode {
	case SmoothingFixed, SmoothingTick:
	default:
		errs = append(errs, fmt.Errorf("unknown smoothing.mode %q", s.Mode))
	}
	if s.ReferenceTickRate <= 0 || s.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("smoothing tick rates must be positive, got %v and %v", s.ReferenceTickRate, s.TickRate))
	}

	switch t := viper.GetString("storage.type"); t {
	case "memory", "sqlite", "postgres", "influx":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", t))
	}

	return errors.Join(errs...)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// AllSettings returns the merged configuration.
func AllSettings() map[string]any {
	return viper.AllSettings()
}
