package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full, immutable application configuration. Components
// receive it (or one of its sections) at construction time.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Hooks    HooksConfig    `yaml:"hooks"`
}

// TelegramConfig holds the bot token and the two logical channels.
type TelegramConfig struct {
	Token        string `yaml:"token"`
	InfoChatID   int64  `yaml:"info_chat_id"`
	OnlineChatID int64  `yaml:"online_chat_id"`
}

// ServerConfig describes the observed game server and its documents.
type ServerConfig struct {
	Host                string        `yaml:"host"`
	TCPPort             int           `yaml:"tcp_port"`
	HTTPURL             string        `yaml:"http_url"`
	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	EventDescriptorPath string        `yaml:"event_descriptor_path"`
	LiveTimingSource    string        `yaml:"live_timing_source"`
	ContentDir          string        `yaml:"content_dir"`
	CarsetsDir          string        `yaml:"carsets_dir"`
}

// MonitorConfig holds poll loop cadence, thresholds and feature flags.
type MonitorConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval"`
	OnlineTimeout        time.Duration `yaml:"online_timeout"`
	NoDownWarning        bool          `yaml:"no_down_warning"`
	VenueRecycleMessage  bool          `yaml:"venue_recycle_message"`
	AutoWeek             bool          `yaml:"auto_week"`
	QualifyTime          string        `yaml:"qualify_time"` // RFC3339, fixed recurrence
	QualifyMinutes       int           `yaml:"qualify_minutes"`
	LeaderboardLines     int           `yaml:"leaderboard_lines"`
	StatePath            string        `yaml:"state_path"`
	ArchiveDir           string        `yaml:"archive_dir"`
	ArchiveKeep          int           `yaml:"archive_keep"`
	SettingsDBPath       string        `yaml:"settings_db_path"`
	Header               string        `yaml:"header"`
	Footer               string        `yaml:"footer"`
	PublicIPResolverURL  string        `yaml:"public_ip_resolver_url"`
}

// HooksConfig lists optional shell scripts run on monitor events.
type HooksConfig struct {
	ServerUp   string `yaml:"server_up"`
	ServerDown string `yaml:"server_down"`
	OneHour    string `yaml:"one_hour"`
	Qualifying string `yaml:"qualifying"`
}

// Load reads configuration from a YAML file and applies defaults for
// unset keys.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}

	// Set defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.TCPPort == 0 {
		cfg.Server.TCPPort = 9600
	}
	if cfg.Server.ProbeTimeout == 0 {
		cfg.Server.ProbeTimeout = 2 * time.Second
	}
	if cfg.Monitor.PollInterval == 0 {
		cfg.Monitor.PollInterval = 3 * time.Second
	}
	if cfg.Monitor.OnlineTimeout == 0 {
		cfg.Monitor.OnlineTimeout = 600 * time.Second
	}
	if cfg.Monitor.QualifyMinutes == 0 {
		cfg.Monitor.QualifyMinutes = 60
	}
	if cfg.Monitor.LeaderboardLines == 0 {
		cfg.Monitor.LeaderboardLines = 10
	}
	if cfg.Monitor.StatePath == "" {
		cfg.Monitor.StatePath = "./monitor-state.json"
	}
	if cfg.Monitor.ArchiveDir == "" {
		cfg.Monitor.ArchiveDir = "./archive"
	}
	// ArchiveKeep stays as configured: 0 keeps every archive.
	if cfg.Monitor.SettingsDBPath == "" {
		cfg.Monitor.SettingsDBPath = "./monitor-bot.db"
	}

	return &cfg, nil
}
