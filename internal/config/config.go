package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tbergstrom/focusd/internal/domain"
)

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

type TimerDefaults struct {
	FocusMinutes      int `mapstructure:"focus_minutes"`
	ShortBreakMinutes int `mapstructure:"short_break_minutes"`
	LongBreakMinutes  int `mapstructure:"long_break_minutes"`
	LongBreakInterval int `mapstructure:"long_break_interval"`
	WeeklyGoal        int `mapstructure:"weekly_goal"`
}

type Config struct {
	ListenAddr string         `mapstructure:"listen_addr"`
	Database   DatabaseConfig `mapstructure:"database"`
	Timer      TimerDefaults  `mapstructure:"timer"`
}

func Load(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/focusd")
		viper.AddConfigPath("/etc/focusd/")
	}

	viper.SetEnvPrefix("FOCUSD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "focusd.db")
	viper.SetDefault("timer.focus_minutes", 25)
	viper.SetDefault("timer.short_break_minutes", 5)
	viper.SetDefault("timer.long_break_minutes", 15)
	viper.SetDefault("timer.long_break_interval", 4)
	viper.SetDefault("timer.weekly_goal", 10)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return &cfg, nil
}

// SessionDefaults translates the server-level timer defaults into the
// per-user configuration handed to new users.
func (c *Config) SessionDefaults() domain.SessionConfig {
	cfg := domain.DefaultConfig()
	if c.Timer.FocusMinutes > 0 {
		cfg.FocusSeconds = c.Timer.FocusMinutes * 60
	}
	if c.Timer.ShortBreakMinutes > 0 {
		cfg.ShortBreakSeconds = c.Timer.ShortBreakMinutes * 60
	}
	if c.Timer.LongBreakMinutes > 0 {
		cfg.LongBreakSeconds = c.Timer.LongBreakMinutes * 60
	}
	if c.Timer.LongBreakInterval >= domain.MinLongBreakInterval && c.Timer.LongBreakInterval <= domain.MaxLongBreakInterval {
		cfg.LongBreakInterval = c.Timer.LongBreakInterval
	}
	if c.Timer.WeeklyGoal > 0 {
		cfg.WeeklyGoalSessions = c.Timer.WeeklyGoal
	}
	return cfg
}
