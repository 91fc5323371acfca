package config

import (
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultHost is the discovery service host. The reference deployment
	// runs the service on IPv4 loopback.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the discovery service TCP port.
	DefaultPort = 8082

	// DefaultBlockSize is the number of bytes the framer asks for per read.
	// The receive buffer starts at this capacity and doubles when a read
	// fills it.
	DefaultBlockSize = 4096

	// DefaultDialTimeout bounds the initial TCP connect.
	DefaultDialTimeout = 10 * time.Second

	// DefaultReadTimeout bounds each blocking read while a response is being
	// framed. Scraping a page on the service side can take a while, so this
	// is generous. Zero disables the deadline.
	DefaultReadTimeout = 2 * time.Minute

	// DefaultPollInterval is how often the CLI poll loop inspects the
	// orchestrator flags.
	DefaultPollInterval = 50 * time.Millisecond

	// AppName is the application name used for XDG directory paths.
	AppName = "jurisdata"

	// LinkConfigFileName is the file name of the persisted link configuration
	// document inside the XDG config directory.
	LinkConfigFileName = "link_configs.json"
)

// Config holds all runtime options. It is populated from NewConfig defaults,
// then the settings file, then CLI flags, and passed explicitly to the
// components that need it.
type Config struct {
	// Host is the discovery service host name or IP address.
	Host string

	// Port is the discovery service TCP port.
	Port int

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form. When set
	// the connection to the discovery service is dialed through it.
	ProxyAddress string

	// DialTimeout bounds the TCP connect.
	DialTimeout time.Duration

	// ReadTimeout bounds each blocking read. Zero means no deadline.
	ReadTimeout time.Duration

	// BlockSize is the framer read block size in bytes.
	BlockSize int

	// PollInterval is the CLI poll loop period.
	PollInterval time.Duration

	// LinkConfigPath is the link configuration document path.
	// Empty means XDGConfigDir()/link_configs.json.
	LinkConfigPath string

	// HistoryDir is the directory holding the SQLite discovery history.
	// Empty means XDGDataDir().
	HistoryDir string

	// SaveHistory records every completed discovery in the history database.
	SaveHistory bool

	// SettingsFilePath is the settings file given with --settings.
	SettingsFilePath string

	// Verbose enables Debug level logging.
	Verbose bool

	// JSONReport prints the discovery session as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the discovery session as Markdown.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		BlockSize:    DefaultBlockSize,
		PollInterval: DefaultPollInterval,
		SaveHistory:  true,
	}
}

// Address returns the discovery service address in "host:port" form.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ResolvedLinkConfigPath returns LinkConfigPath or its XDG default.
func (c *Config) ResolvedLinkConfigPath() string {
	if c.LinkConfigPath != "" {
		return c.LinkConfigPath
	}
	return filepath.Join(XDGConfigDir(), LinkConfigFileName)
}

// ResolvedHistoryDir returns HistoryDir or its XDG default.
func (c *Config) ResolvedHistoryDir() string {
	if c.HistoryDir != "" {
		return c.HistoryDir
	}
	return XDGDataDir()
}

// XDGDataDir returns the XDG data directory for jurisdata
// (~/.local/share/jurisdata on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for jurisdata
// (~/.config/jurisdata on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrInvalidHost
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.ProxyAddress != "" && !isValidHostPort(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}
	if c.DialTimeout <= 0 {
		return ErrInvalidDialTimeout
	}
	if c.ReadTimeout < 0 {
		return ErrInvalidReadTimeout
	}
	if c.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// isValidHostPort reports whether address is "host:port" with a non-empty
// host and a port in 1-65535.
func isValidHostPort(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
