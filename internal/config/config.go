package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type SocrataConfig struct {
	BaseURL        string
	AppToken       string
	TimeoutSeconds int
}

type ReportConfig struct {
	Concurrency int
}

type SchedulerConfig struct {
	AccessSecret string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Socrata     SocrataConfig
	Report      ReportConfig
	Scheduler   SchedulerConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Socrata: SocrataConfig{
			BaseURL:        v.GetString("SOCRATA_BASE_URL"),
			AppToken:       v.GetString("SOCRATA_APP_TOKEN"),
			TimeoutSeconds: v.GetInt("SOCRATA_TIMEOUT_SECONDS"),
		},
		Report: ReportConfig{
			Concurrency: v.GetInt("REPORT_CONCURRENCY"),
		},
		Scheduler: SchedulerConfig{
			AccessSecret: v.GetString("SCHEDULER_ACCESS_SECRET"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Socrata.BaseURL == "" {
		cfg.Socrata.BaseURL = "https://data.cityofchicago.org/resource/"
	}
	if cfg.Socrata.TimeoutSeconds <= 0 {
		cfg.Socrata.TimeoutSeconds = 360
	}
	if cfg.Report.Concurrency <= 0 {
		cfg.Report.Concurrency = 4
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	return nil
}
