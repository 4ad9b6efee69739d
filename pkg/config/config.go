package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Session SessionConfig
	Client  ClientConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
}

// SessionConfig 媒體會話服務（OpenVidu）的連線設定
type SessionConfig struct {
	URL    string
	Secret string
}

// ClientConfig 官方客戶端的簽章，用於辨識特權客戶端
type ClientConfig struct {
	Signature string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./pkg/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
