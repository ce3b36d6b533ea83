package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/icodeforyou/malar-go/logging"
	"github.com/icodeforyou/malar-go/types"
	"github.com/spf13/viper"
)

type AppConfigMalar struct {
	PricingBaseURL *string `mapstructure:"pricing_base_url"`
	OutageURL      *string `mapstructure:"outage_url"`
	// Timeout for a single request in seconds, default: 10
	HttpTimeout *int `mapstructure:"http_timeout"`
	// Bidding areas to poll prices for, "SE1", "SE2", "SE3", "SE4", default: ["SE3"]
	Sectors []string `mapstructure:"sectors"`
}

func (m AppConfigMalar) GetHttpTimeout() time.Duration {
	if m.HttpTimeout == nil {
		return 10 * time.Second
	}
	return time.Duration(*m.HttpTimeout) * time.Second
}

func (m AppConfigMalar) GetSectors() ([]types.Sector, error) {
	if len(m.Sectors) == 0 {
		return []types.Sector{types.SE3}, nil
	}
	sectors := make([]types.Sector, 0, len(m.Sectors))
	for _, s := range m.Sectors {
		sector, err := types.ParseSector(s)
		if err != nil {
			return nil, err
		}
		sectors = append(sectors, sector)
	}
	return sectors, nil
}

type AppConfigEnergyPrice struct {
	RunAt string `mapstructure:"run_at"`
	// Fall back to elprisetjustnu and nordpool when Mälarenergi fails
	Fallback bool `mapstructure:"fallback"`
}

type AppConfigOutage struct {
	RunAt string `mapstructure:"run_at"`
}

type AppConfigDatabase struct {
	Path string
	// How many days data should be stored in database before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 90
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

type AppConfigApi struct {
	Address string
	Port    int16
	// Allowed CORS origins, default: ["*"]
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (a AppConfigApi) GetAllowedOrigins() []string {
	if len(a.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return a.AllowedOrigins
}

type AppConfigMqtt struct {
	Enabled  bool
	Host     string
	Port     int16
	Username string
	Password string
	// Prefix for all published topics, default: "malar"
	TopicPrefix *string `mapstructure:"topic_prefix"`
}

func (m AppConfigMqtt) GetTopicPrefix() string {
	if m.TopicPrefix == nil {
		return "malar"
	}
	return strings.TrimRight(*m.TopicPrefix, "/")
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Malar       AppConfigMalar       `mapstructure:"malar"`
	EnergyPrice AppConfigEnergyPrice `mapstructure:"energy_price"`
	Outage      AppConfigOutage      `mapstructure:"outage"`
	Database    AppConfigDatabase
	Api         AppConfigApi
	Mqtt        AppConfigMqtt
	Logging     AppConfigLogging `mapstructure:"logging"`
}

func Load(path string) (*AppConfig, error) {
	c, _, err := load(path)
	return c, err
}

// Watch loads the config and calls onChange with the new config every time
// the file is written. A file that fails to parse is logged and ignored.
func Watch(path string, onChange func(*AppConfig)) (*AppConfig, error) {
	c, v, err := load(path)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var changed AppConfig
		if err := v.Unmarshal(&changed); err != nil {
			slog.Default().Warn("ignoring invalid config change",
				slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		slog.Default().Info("config reloaded", slog.String("file", e.Name))
		onChange(&changed)
	})
	v.WatchConfig()

	return c, nil
}

func load(path string) (*AppConfig, *viper.Viper, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("energy_price.run_at", "5 * * * *")
	v.SetDefault("outage.run_at", "*/10 * * * *")
	v.SetDefault("database.path", "malar.db")
	v.SetDefault("api.port", 8080)

	var c AppConfig

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := v.Unmarshal(&c); err != nil {
		return nil, nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	return &c, v, nil
}
