package config

import "time"

// ServerSettings describes the discovery service endpoint.
type ServerSettings struct {
	// Host is the discovery service host.
	Host string `yaml:"host,omitempty"`

	// Port is the discovery service TCP port.
	Port int `yaml:"port,omitempty"`

	// Proxy is an optional SOCKS5 proxy in "host:port" form.
	Proxy string `yaml:"proxy,omitempty"`

	// DialTimeout bounds the TCP connect (e.g. "10s").
	DialTimeout time.Duration `yaml:"dialTimeout,omitempty"`
}

// ReceiveSettings tune the response framer.
type ReceiveSettings struct {
	// BlockSize is the number of bytes requested per read.
	BlockSize int `yaml:"blockSize,omitempty"`

	// Timeout bounds each blocking read (e.g. "2m").
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// HistorySettings control the discovery history database.
type HistorySettings struct {
	// Enabled toggles history recording. Nil means "not set".
	Enabled *bool `yaml:"enabled,omitempty"`

	// Dir is the directory holding jurisdata.db.
	Dir string `yaml:"dir,omitempty"`
}

// Settings is the structure of the .jurisdata.yaml settings file.
type Settings struct {
	Server  ServerSettings  `yaml:"server,omitempty"`
	Receive ReceiveSettings `yaml:"receive,omitempty"`
	History HistorySettings `yaml:"history,omitempty"`

	// LinkConfigPath overrides the link configuration document location.
	LinkConfigPath string `yaml:"linkConfigPath,omitempty"`

	// PollInterval is the CLI poll loop period (e.g. "50ms").
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
}

// ApplyTo copies every value set in s onto cfg. Zero values leave the
// corresponding cfg field untouched.
func (s *Settings) ApplyTo(cfg *Config) {
	if s.Server.Host != "" {
		cfg.Host = s.Server.Host
	}
	if s.Server.Port != 0 {
		cfg.Port = s.Server.Port
	}
	if s.Server.Proxy != "" {
		cfg.ProxyAddress = s.Server.Proxy
	}
	if s.Server.DialTimeout != 0 {
		cfg.DialTimeout = s.Server.DialTimeout
	}
	if s.Receive.BlockSize != 0 {
		cfg.BlockSize = s.Receive.BlockSize
	}
	if s.Receive.Timeout != 0 {
		cfg.ReadTimeout = s.Receive.Timeout
	}
	if s.History.Enabled != nil {
		cfg.SaveHistory = *s.History.Enabled
	}
	if s.History.Dir != "" {
		cfg.HistoryDir = s.History.Dir
	}
	if s.LinkConfigPath != "" {
		cfg.LinkConfigPath = s.LinkConfigPath
	}
	if s.PollInterval != 0 {
		cfg.PollInterval = s.PollInterval
	}
}
