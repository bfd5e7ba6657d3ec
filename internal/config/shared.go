package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port        string `mapstructure:"port"`
		MetricsPort string `mapstructure:"metrics_port"`
		TempDir     string `mapstructure:"temp_dir"`
	} `mapstructure:"server"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Automation struct {
		// Defaults for the sync trigger; the live endpoint/credential are
		// stored in the integration_config table, not here.
		DefaultLookbackHours int `mapstructure:"default_lookback_hours"`
		TimeoutSeconds       int `mapstructure:"timeout_seconds"`
	} `mapstructure:"automation"`
	Station struct {
		Timezone      string `mapstructure:"timezone"`
		TimetablePath string `mapstructure:"timetable_path"`
	} `mapstructure:"station"`
	Reports struct {
		Provider  string `mapstructure:"provider"` // "s3" or "local"
		LocalPath string `mapstructure:"local_path"`
		KeyID     string `mapstructure:"key_id"`
		AppKey    string `mapstructure:"app_key"`
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
	} `mapstructure:"reports"`
	Auth struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		AdminPassword string `mapstructure:"admin_password"`
	} `mapstructure:"auth"`
}

func Load() *Config {
	viper.SetEnvPrefix("AIRTRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Register keys
	viper.BindEnv("server.port")
	viper.BindEnv("server.metrics_port")
	viper.BindEnv("server.temp_dir")

	viper.BindEnv("database.host")
	viper.BindEnv("database.port")
	viper.BindEnv("database.user")
	viper.BindEnv("database.password")
	viper.BindEnv("database.name")

	viper.BindEnv("automation.default_lookback_hours")
	viper.BindEnv("automation.timeout_seconds")

	viper.BindEnv("station.timezone")
	viper.BindEnv("station.timetable_path")

	viper.BindEnv("reports.provider")
	viper.BindEnv("reports.local_path")
	viper.BindEnv("reports.key_id")
	viper.BindEnv("reports.app_key")
	viper.BindEnv("reports.endpoint")
	viper.BindEnv("reports.region")
	viper.BindEnv("reports.bucket")

	viper.BindEnv("auth.jwt_secret")
	viper.BindEnv("auth.admin_password")

	// Defaults
	viper.SetDefault("server.port", ":8080")
	viper.SetDefault("server.metrics_port", ":9091")
	viper.SetDefault("server.temp_dir", "/tmp/")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "airtrack")
	viper.SetDefault("database.name", "airtrack")

	viper.SetDefault("automation.default_lookback_hours", 24)
	viper.SetDefault("automation.timeout_seconds", 30)

	viper.SetDefault("station.timezone", "Local")
	viper.SetDefault("station.timetable_path", "timetable.yaml")

	viper.SetDefault("reports.provider", "local")
	viper.SetDefault("reports.local_path", "./data")
	viper.SetDefault("reports.bucket", "airplay-reports")

	viper.SetDefault("auth.admin_password", "change-me")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("Critical: JWT secret is missing (AIRTRACK_AUTH_JWT_SECRET)")
	}

	return &cfg
}
