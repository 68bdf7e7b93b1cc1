package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

const (
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
)

const (
	defaultListenPort      = "578"
	defaultMaxRequestBytes = 63
	maxMaxRequestBytes     = 4096
)

type Config struct {
	ListenHost              string
	ListenPort              string
	MaxRequestBytes         int
	ReadTimeoutMilliseconds uint
	Workers                 int
	LogLevel                string
	ManagementApi           ManagementApi
}

type ManagementApi struct {
	ListenPort string
}

func loadConfig(filePath string) (Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Config{}, err
	}
	defer func() {
		_ = file.Close()
	}()
	return loadConfigFromReader(file)
}

func loadConfigFromReader(reader io.Reader) (Config, error) {
	var config Config

	contents, err := io.ReadAll(reader)
	if err != nil {
		return config, err
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(contents)))
	decoder.DisallowUnknownFields()

	err = decoder.Decode(&config)
	if err != nil {
		return config, err
	}
	config = applyDefaults(config)
	err = validateConfig(config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// applyDefaults fills in every zero value that has a non-zero default.
func applyDefaults(cfg Config) Config {
	if cfg.ListenPort == "" {
		cfg.ListenPort = defaultListenPort
	}
	if cfg.MaxRequestBytes == 0 {
		cfg.MaxRequestBytes = defaultMaxRequestBytes
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo
	}
	return cfg
}

func validateConfig(cfg Config) error {
	var issues []string

	// 0 is allowed here so the OS can pick a free port.
	portVal, err := strconv.Atoi(cfg.ListenPort)
	if err != nil || portVal < 0 || portVal > 65535 {
		issues = append(issues,
			fmt.Sprintf("ListenPort is invalid: %q", cfg.ListenPort))
	}

	if cfg.ManagementApi.ListenPort != "" {
		portVal, err := strconv.Atoi(cfg.ManagementApi.ListenPort)
		if err != nil || portVal <= 0 || portVal > 65535 {
			issues = append(issues,
				fmt.Sprintf("top-level ManagementApi.ListenPort is invalid: %q", cfg.ManagementApi.ListenPort))
		}
		if cfg.ManagementApi.ListenPort == cfg.ListenPort {
			issues = append(issues,
				fmt.Sprintf("ManagementApi.ListenPort and ListenPort are both %s", cfg.ListenPort))
		}
	}

	if cfg.MaxRequestBytes < 1 || cfg.MaxRequestBytes > maxMaxRequestBytes {
		issues = append(issues,
			fmt.Sprintf("MaxRequestBytes must be between 1 and %d, got %d", maxMaxRequestBytes, cfg.MaxRequestBytes))
	}

	if cfg.Workers < 1 {
		issues = append(issues,
			fmt.Sprintf("Workers must be at least 1, got %d", cfg.Workers))
	}

	if cfg.LogLevel != LogLevelInfo && cfg.LogLevel != LogLevelDebug {
		issues = append(issues,
			fmt.Sprintf("LogLevel %q is not one of %q, %q", cfg.LogLevel, LogLevelInfo, LogLevelDebug))
	}

	if len(issues) > 0 {
		return errors.New(" - " + strings.Join(issues, "\n - "))
	}
	return nil
}

func (cfg Config) listenAddress() string {
	return net.JoinHostPort(cfg.ListenHost, cfg.ListenPort)
}

// managementListenAddress binds the management API to the same host as the
// request listener.
func (cfg Config) managementListenAddress() string {
	return net.JoinHostPort(cfg.ListenHost, cfg.ManagementApi.ListenPort)
}
