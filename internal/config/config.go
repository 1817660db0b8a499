// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
	"github.com/ffutop/modbus-simulator/internal/bank"
	"github.com/ffutop/modbus-simulator/internal/codec"
)

// EnvPrefix prefixes every environment override, e.g. MODBUSSIM_SIMULATOR_BYTE_ORDER.
const EnvPrefix = "MODBUSSIM"

// Config defines the global configuration structure
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Client    ClientConfig    `mapstructure:"client"`
	Log       LogConfig       `mapstructure:"log"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// ServerConfig defines the upstreams masters connect to.
type ServerConfig struct {
	Address    string       `mapstructure:"address"`      // e.g. "0.0.0.0:5020"
	RTU        SerialConfig `mapstructure:"rtu"`          // Enabled when Device is set
	RTUOverTCP TcpConfig    `mapstructure:"rtu_over_tcp"` // Enabled when Address is set
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string `mapstructure:"address"` // e.g. "0.0.0.0:5021"
}

// SimulatorConfig defines the register bank and its update loop.
type SimulatorConfig struct {
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	ErrorBackoff   time.Duration `mapstructure:"error_backoff"`
	ByteOrder      string        `mapstructure:"byte_order"` // "big" or "little"
	BankSize       int           `mapstructure:"bank_size"`
	Backing        BackingConfig `mapstructure:"backing"`
}

// BackingConfig defines where the register table is mirrored.
type BackingConfig struct {
	Type  string `mapstructure:"type"`  // "memory", "mmap", "file"
	Path  string `mapstructure:"path"`  // File path for "mmap/file" type
	Flush bool   `mapstructure:"flush"` // msync/fsync after every batch
}

// MonitorConfig defines the optional HTTP view of the bank.
type MonitorConfig struct {
	Address string `mapstructure:"address"` // empty disables the monitor
}

// ClientConfig defines the one-shot reader.
type ClientConfig struct {
	URL       string        `mapstructure:"url"` // "tcp://host:port" or "rtu:///dev/ttyUSB0"
	UnitID    uint8         `mapstructure:"unit_id"`
	Start     uint16        `mapstructure:"start"`
	Count     uint16        `mapstructure:"count"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ByteOrder string        `mapstructure:"byte_order"`
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// Order parses the configured byte order.
func (c SimulatorConfig) Order() (codec.ByteOrder, error) {
	return codec.ParseByteOrder(c.ByteOrder)
}

// Order parses the configured byte order.
func (c ClientConfig) Order() (codec.ByteOrder, error) {
	return codec.ParseByteOrder(c.ByteOrder)
}

// New returns a viper instance carrying every default.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.address", "0.0.0.0:5020")
	v.SetDefault("server.rtu.device", "")
	v.SetDefault("server.rtu.baud_rate", 19200)
	v.SetDefault("server.rtu.data_bits", 8)
	v.SetDefault("server.rtu.parity", "N")
	v.SetDefault("server.rtu.stop_bits", 1)
	v.SetDefault("server.rtu.timeout", 500*time.Millisecond)
	v.SetDefault("server.rtu_over_tcp.address", "")

	v.SetDefault("simulator.update_interval", time.Second)
	v.SetDefault("simulator.error_backoff", 5*time.Second)
	v.SetDefault("simulator.byte_order", "big")
	v.SetDefault("simulator.bank_size", bank.DefaultSize)
	v.SetDefault("simulator.backing.type", "memory")
	v.SetDefault("simulator.backing.path", "")
	v.SetDefault("simulator.backing.flush", false)

	v.SetDefault("monitor.address", "")

	v.SetDefault("client.url", "tcp://localhost:5020")
	v.SetDefault("client.unit_id", 1)
	v.SetDefault("client.start", 0)
	v.SetDefault("client.count", addressmap.Default.Span())
	v.SetDefault("client.timeout", 3*time.Second)
	v.SetDefault("client.byte_order", "big")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file, .env and the environment.
// Without an explicit configFile a missing config file is not an error.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbussim/")
		v.AddConfigPath("$HOME/.modbussim")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixupSerial(&config.Server.RTU)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	s := c.Simulator
	if s.UpdateInterval <= 0 {
		return fmt.Errorf("simulator.update_interval must be positive, got %v", s.UpdateInterval)
	}
	if s.ErrorBackoff <= 0 {
		return fmt.Errorf("simulator.error_backoff must be positive, got %v", s.ErrorBackoff)
	}
	if s.BankSize > bank.MaxSize {
		return fmt.Errorf("simulator.bank_size must not exceed %d, got %d", bank.MaxSize, s.BankSize)
	}
	if err := addressmap.Default.Validate(s.BankSize); err != nil {
		return fmt.Errorf("simulator.bank_size %d: %w", s.BankSize, err)
	}
	if _, err := s.Order(); err != nil {
		return fmt.Errorf("simulator.byte_order: %w", err)
	}
	switch s.Backing.Type {
	case "", "memory":
	case "mmap", "file":
		if s.Backing.Path == "" {
			return fmt.Errorf("simulator.backing.path is required for %s backing", s.Backing.Type)
		}
	default:
		return fmt.Errorf("unknown simulator.backing.type %q", s.Backing.Type)
	}
	if _, err := c.Client.Order(); err != nil {
		return fmt.Errorf("client.byte_order: %w", err)
	}
	if c.Client.Count == 0 || c.Client.Count > 125 {
		return fmt.Errorf("client.count must be 1-125, got %d", c.Client.Count)
	}
	if end := int(c.Client.Start) + int(c.Client.Count); end > bank.MaxSize {
		return fmt.Errorf("client.start %d + client.count %d exceeds the address space", c.Client.Start, c.Client.Count)
	}
	return nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}
