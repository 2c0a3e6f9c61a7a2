package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mupfdev/CANopenTerm/pkg/can"
	"github.com/mupfdev/CANopenTerm/pkg/link"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

var (
	ErrNoInterface     = errors.New("no adapter interface configured")
	ErrInvalidInterval = errors.New("interval should be strictly positive")
)

const (
	DefaultInterface = "socketcan"
	DefaultChannel   = "can0"
	DefaultLogLevel  = log.InfoLevel
)

// Config holds the runtime settings of the terminal.
// It maps to an ini file:
//
//	[can]
//	interface = socketcan
//	channel   = can0
//	bitrate   = 3
//
//	[link]
//	poll_interval_ms = 10
//	retry_delay_ms   = 10
//
//	[log]
//	level = info
//
//	[http]
//	listen = :8090
type Config struct {
	Interface    string
	Channel      string
	BitRate      can.BitRate
	PollInterval time.Duration
	RetryDelay   time.Duration
	LogLevel     log.Level
	Listen       string // Empty to disable the HTTP server
}

func Default() *Config {
	return &Config{
		Interface:    DefaultInterface,
		Channel:      DefaultChannel,
		BitRate:      can.DefaultBitRate,
		PollInterval: link.DefaultPollInterval,
		RetryDelay:   link.DefaultRetryDelay,
		LogLevel:     DefaultLogLevel,
	}
}

// Load configuration from an ini file path
func Load(path string) (*Config, error) {
	return LoadSource(path)
}

// LoadSource loads configuration from a path, []byte or io.Reader.
// Missing keys keep their default value.
func LoadSource(source any) (*Config, error) {
	file, err := ini.Load(source)
	if err != nil {
		return nil, err
	}
	config := Default()

	section := file.Section("can")
	config.Interface = section.Key("interface").MustString(config.Interface)
	config.Channel = section.Key("channel").MustString(config.Channel)
	if section.HasKey("bitrate") {
		index, err := section.Key("bitrate").Uint()
		if err != nil {
			return nil, fmt.Errorf("[can] bitrate : %w", err)
		}
		rate, ok := can.BitRateFromIndex(index)
		if !ok {
			return nil, fmt.Errorf("[can] bitrate : %w : %v", can.ErrInvalidBitRate, index)
		}
		config.BitRate = rate
	}

	section = file.Section("link")
	config.PollInterval = millis(section.Key("poll_interval_ms"), config.PollInterval)
	config.RetryDelay = millis(section.Key("retry_delay_ms"), config.RetryDelay)

	if key := file.Section("log").Key("level"); key.String() != "" {
		level, err := log.ParseLevel(key.String())
		if err != nil {
			return nil, fmt.Errorf("[log] level : %w", err)
		}
		config.LogLevel = level
	}

	config.Listen = file.Section("http").Key("listen").String()

	return config, config.Validate()
}

func millis(key *ini.Key, defaultValue time.Duration) time.Duration {
	return time.Duration(key.MustInt64(defaultValue.Milliseconds())) * time.Millisecond
}

func (config *Config) Validate() error {
	if config.Interface == "" {
		return ErrNoInterface
	}
	if config.BitRate > can.MaxBitRate {
		return fmt.Errorf("%w : %v", can.ErrInvalidBitRate, uint8(config.BitRate))
	}
	if config.PollInterval <= 0 {
		return fmt.Errorf("poll interval %w", ErrInvalidInterval)
	}
	if config.RetryDelay <= 0 {
		return fmt.Errorf("retry delay %w", ErrInvalidInterval)
	}
	return nil
}

// Supervisor settings derived from the configuration
func (config *Config) Link() link.Config {
	return link.Config{
		PollInterval: config.PollInterval,
		RetryDelay:   config.RetryDelay,
		BitRate:      config.BitRate,
	}
}
