package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "suitespot.cfg.json"

// mu serializes access to the global viper instance. Handlers write settings
// while the status monitor, buffered handlers and log context read them.
var mu sync.RWMutex

// Settings holds the auto-load behaviour that used to live in plugin cvars.
type Settings struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	MapType         int           `json:"mapType" mapstructure:"mapType"`
	AutoQueue       bool          `json:"autoQueue" mapstructure:"autoQueue"`
	TrainingShuffle bool          `json:"trainingShuffle" mapstructure:"trainingShuffle"`
	Delays          DelayConfig   `json:"delays" mapstructure:"delays"`
	Current         CurrentConfig `json:"current" mapstructure:"current"`
}

// DelayConfig holds the per-action delays after a match ends.
type DelayConfig struct {
	Queue    time.Duration `json:"queue" mapstructure:"queue"`
	Freeplay time.Duration `json:"freeplay" mapstructure:"freeplay"`
	Training time.Duration `json:"training" mapstructure:"training"`
	Workshop time.Duration `json:"workshop" mapstructure:"workshop"`
}

// CurrentConfig holds the persisted selection per map type.
type CurrentConfig struct {
	Freeplay int `json:"freeplay" mapstructure:"freeplay"`
	Training int `json:"training" mapstructure:"training"`
	Workshop int `json:"workshop" mapstructure:"workshop"`
}

// StorageConfig selects the pack index backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// DSN renders the connection string for the gorm postgres driver.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		p.Host, p.Port, p.Username, p.Password, p.Database, p.SSLMode)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds the map-load telemetry sink settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL returns protocol://host:port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds the GELF log sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// StreamConfig holds the overlay websocket feed settings.
type StreamConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	URL            string        `json:"url" mapstructure:"url"`
	Secret         string        `json:"secret" mapstructure:"secret"`
	ReconnectDelay time.Duration `json:"reconnectDelay" mapstructure:"reconnectDelay"`
	MaxBackoff     time.Duration `json:"maxBackoff" mapstructure:"maxBackoff"`
}

// PacksConfig holds the training pack database settings.
type PacksConfig struct {
	ScraperScript string        `json:"scraperScript" mapstructure:"scraperScript"`
	MaxAge        time.Duration `json:"maxAge" mapstructure:"maxAge"`
	AutoRefresh   bool          `json:"autoRefresh" mapstructure:"autoRefresh"`
}

// WorkshopConfig holds workshop discovery settings.
type WorkshopConfig struct {
	FallbackRoots []string `json:"fallbackRoots" mapstructure:"fallbackRoots"`
}

// OverlayConfig holds the post-match overlay layout sent with match stats.
// Hues are degrees on the colour wheel.
type OverlayConfig struct {
	Width     int           `json:"width" mapstructure:"width"`
	Height    int           `json:"height" mapstructure:"height"`
	Alpha     float64       `json:"alpha" mapstructure:"alpha"`
	Duration  time.Duration `json:"duration" mapstructure:"duration"`
	BlueHue   float64       `json:"blueHue" mapstructure:"blueHue"`
	OrangeHue float64       `json:"orangeHue" mapstructure:"orangeHue"`
}

var defaultFallbackRoots = []string{
	`C:\Program Files\Epic Games\rocketleague\TAGame\CookedPCConsole\mods`,
	`C:\Program Files (x86)\Steam\steamapps\common\rocketleague\TAGame\CookedPCConsole\mods`,
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	mu.Lock()
	defer mu.Unlock()

	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		// Save writes here even when no file existed yet.
		viper.SetConfigFile(filepath.Join(configDir, FileName))
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers the default for every key.
func SetDefaults() {
	mu.Lock()
	defer mu.Unlock()
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./suitespotlogs")
	viper.SetDefault("dataRoot", "")

	viper.SetDefault("enabled", false)
	viper.SetDefault("mapType", 0)
	viper.SetDefault("autoQueue", false)
	viper.SetDefault("training.shuffle", false)

	viper.SetDefault("delays.queue", "0s")
	viper.SetDefault("delays.freeplay", "0s")
	viper.SetDefault("delays.training", "0s")
	viper.SetDefault("delays.workshop", "0s")

	viper.SetDefault("current.freeplay", 0)
	viper.SetDefault("current.training", 0)
	viper.SetDefault("current.workshop", 0)

	viper.SetDefault("workshop.fallbackRoots", defaultFallbackRoots)

	viper.SetDefault("packs.scraperScript", "")
	viper.SetDefault("packs.maxAge", "168h")
	viper.SetDefault("packs.autoRefresh", false)
	viper.SetDefault("statusInterval", "1m")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "suitespot")
	viper.SetDefault("storage.postgres.sslMode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "suitespot")
	viper.SetDefault("influx.bucket", "suitespot-loads")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.url", "ws://localhost:5000/ws/overlay")
	viper.SetDefault("stream.secret", "")
	viper.SetDefault("stream.reconnectDelay", "1s")
	viper.SetDefault("stream.maxBackoff", "30s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "suitespot")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("overlay.width", 880)
	viper.SetDefault("overlay.height", 400)
	viper.SetDefault("overlay.alpha", 0.85)
	viper.SetDefault("overlay.duration", "15s")
	viper.SetDefault("overlay.blueHue", 240.0)
	viper.SetDefault("overlay.orangeHue", 25.0)
}

// FileUsed returns the path of the config file Save writes to.
func FileUsed() string {
	mu.RLock()
	defer mu.RUnlock()
	return viper.ConfigFileUsed()
}

// GetString returns a string config value.
func GetString(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetInt(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetDuration(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return viper.GetBool(key)
}

func GetSettings() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return Settings{
		Enabled:         viper.GetBool("enabled"),
		MapType:         viper.GetInt("mapType"),
		AutoQueue:       viper.GetBool("autoQueue"),
		TrainingShuffle: viper.GetBool("training.shuffle"),
		Delays: DelayConfig{
			Queue:    viper.GetDuration("delays.queue"),
			Freeplay: viper.GetDuration("delays.freeplay"),
			Training: viper.GetDuration("delays.training"),
			Workshop: viper.GetDuration("delays.workshop"),
		},
		Current: CurrentConfig{
			Freeplay: viper.GetInt("current.freeplay"),
			Training: viper.GetInt("current.training"),
			Workshop: viper.GetInt("current.workshop"),
		},
	}
}

func GetStorageConfig() StorageConfig {
	mu.RLock()
	defer mu.RUnlock()
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
	}
}

func GetOTelConfig() OTelConfig {
	mu.RLock()
	defer mu.RUnlock()
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetInfluxConfig() InfluxConfig {
	mu.RLock()
	defer mu.RUnlock()
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

func GetGraylogConfig() GraylogConfig {
	mu.RLock()
	defer mu.RUnlock()
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

func GetStreamConfig() StreamConfig {
	mu.RLock()
	defer mu.RUnlock()
	return StreamConfig{
		Enabled:        viper.GetBool("stream.enabled"),
		URL:            viper.GetString("stream.url"),
		Secret:         viper.GetString("stream.secret"),
		ReconnectDelay: viper.GetDuration("stream.reconnectDelay"),
		MaxBackoff:     viper.GetDuration("stream.maxBackoff"),
	}
}

func GetPacksConfig() PacksConfig {
	mu.RLock()
	defer mu.RUnlock()
	return PacksConfig{
		ScraperScript: viper.GetString("packs.scraperScript"),
		MaxAge:        viper.GetDuration("packs.maxAge"),
		AutoRefresh:   viper.GetBool("packs.autoRefresh"),
	}
}

func GetOverlayConfig() OverlayConfig {
	mu.RLock()
	defer mu.RUnlock()
	return OverlayConfig{
		Width:     viper.GetInt("overlay.width"),
		Height:    viper.GetInt("overlay.height"),
		Alpha:     viper.GetFloat64("overlay.alpha"),
		Duration:  viper.GetDuration("overlay.duration"),
		BlueHue:   viper.GetFloat64("overlay.blueHue"),
		OrangeHue: viper.GetFloat64("overlay.orangeHue"),
	}
}

func GetWorkshopConfig() WorkshopConfig {
	mu.RLock()
	defer mu.RUnlock()
	return WorkshopConfig{
		FallbackRoots: viper.GetStringSlice("workshop.fallbackRoots"),
	}
}

// indexKeys maps a map type name to its persisted index key.
var indexKeys = map[string]string{
	"freeplay": "current.freeplay",
	"training": "current.training",
	"workshop": "current.workshop",
}

// SetIndex records the current selection for kind ("freeplay", "training"
// or "workshop").
func SetIndex(kind string, i int) error {
	key, ok := indexKeys[kind]
	if !ok {
		return fmt.Errorf("unknown map type %q", kind)
	}
	mu.Lock()
	defer mu.Unlock()
	viper.Set(key, i)
	return nil
}

// settable lists the keys that Set accepts at runtime.
var settable = map[string]bool{
	"enabled":           true,
	"mapType":           true,
	"autoQueue":         true,
	"training.shuffle":  true,
	"delays.queue":      true,
	"delays.freeplay":   true,
	"delays.training":   true,
	"delays.workshop":   true,
	"current.freeplay":  true,
	"current.training":  true,
	"current.workshop":  true,
	"logLevel":          true,
	"overlay.width":     true,
	"overlay.height":    true,
	"overlay.alpha":     true,
	"overlay.duration":  true,
	"overlay.blueHue":   true,
	"overlay.orangeHue": true,
}

// Set updates a runtime-settable key. Only keys exposed as plugin settings
// are accepted.
func Set(key string, value any) error {
	if !settable[key] {
		return fmt.Errorf("setting %q is not writable", key)
	}
	mu.Lock()
	defer mu.Unlock()
	viper.Set(key, value)
	return nil
}

// Save writes the current configuration back to the config file.
func Save() error {
	mu.Lock()
	defer mu.Unlock()
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
