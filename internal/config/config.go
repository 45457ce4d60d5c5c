package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Feed struct {
		URL            string `mapstructure:"url"`
		APIKey         string `mapstructure:"api_key"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"feed"`
	Poll struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
	} `mapstructure:"poll"`
	Storage struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"storage"`
	Retention struct {
		Days       int `mapstructure:"days"`
		SweepHours int `mapstructure:"sweep_hours"`
	} `mapstructure:"retention"`
	Dedup struct {
		WindowMillis int `mapstructure:"window_millis"`
	} `mapstructure:"dedup"`
	Log struct {
		Development bool `mapstructure:"development"`
	} `mapstructure:"log"`
}

func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Retention.Days) * 24 * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepHours) * time.Hour
}

func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Dedup.WindowMillis) * time.Millisecond
}

// Load reads config.yaml from path (optional, defaults apply when absent)
// and lets ALERTD_* environment variables override any key.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvPrefix("alertd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("feed.url", "https://api.alerts.example/v1/active")
	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("poll.interval_seconds", 10)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("retention.days", 7)
	v.SetDefault("retention.sweep_hours", 24)
	v.SetDefault("dedup.window_millis", 5000)
	v.SetDefault("log.development", false)
}
