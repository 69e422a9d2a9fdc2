package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	ReconciliationSubmitted string `mapstructure:"reconciliation_submitted"`
}

type BusinessConfig struct {
	// ReportingTimezone fixes the calendar-day boundary for daily
	// aggregation. Drivers settle in local business hours, so this is
	// never the process-local zone.
	ReportingTimezone string `mapstructure:"reporting_timezone"`
	OutboxMaxRetry    int    `mapstructure:"outbox_max_retry"`
	EodEnabled        bool   `mapstructure:"eod_enabled"`
	EodGenerateHour   int    `mapstructure:"eod_generate_hour"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var GlobalConfig *Config

// LoadConfig reads the yaml config file and unmarshals it.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	if config.Business.ReportingTimezone == "" {
		config.Business.ReportingTimezone = "Asia/Amman"
	}
	if config.Business.OutboxMaxRetry == 0 {
		config.Business.OutboxMaxRetry = 5
	}

	GlobalConfig = config
	return config
}
