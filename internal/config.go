package internal

import (
	"encoding/json"
	"io"
	"os"
)

type Config struct {
	Host                  string `json:"host"`
	ListenAddr            string `json:"listen-addr"`
	DBPath                string `json:"db-path"`
	Broker                string `json:"broker"`
	ZmqPublishEndpoint    string `json:"zmq-publish-endpoint"`
	AllowUnsignedMessages bool   `json:"allow-unsigned-messages"`
	KeyCacheSize          int    `json:"key-cache-size"`
	SessionSecret         string `json:"session-secret"`
	ReadTimeout           int64  `json:"read-timeout"`
	WriteTimeout          int64  `json:"write-timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:               "localhost:8080",
		ListenAddr:         ":8080",
		DBPath:             "fedchat.db",
		Broker:             "inproc",
		ZmqPublishEndpoint: "tcp://127.0.0.1:5556",
		KeyCacheSize:       1024,
		SessionSecret:      "change-me",
		ReadTimeout:        15,
		WriteTimeout:       15,
	}
}

// LoadConfig reads a JSON config file; fields left out keep their defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0755)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err = json.Unmarshal(payload, config); err != nil {
		return nil, err
	}

	return config, nil
}
