package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	Bot         BotConfig         `json:"bot"`
	Detection   DetectionConfig   `json:"detection"`
	AutoMod     AutoModConfig     `json:"automod"`
	Permissions PermissionsConfig `json:"permissions"`
	Storage     StorageConfig     `json:"storage"`
	Network     NetworkConfig     `json:"network"`
	LogPath     string            `json:"log_path"`
}

type BotConfig struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
}

type DetectionConfig struct {
	Enabled            bool `json:"enabled"`
	SpamThreshold      int  `json:"spam_threshold"`
	SpamWindowSec      int  `json:"spam_window_sec"`
	SpamTimeoutMin     int  `json:"spam_timeout_min"`
	RaidThreshold      int  `json:"raid_threshold"`
	RaidWindowSec      int  `json:"raid_window_sec"`
	NukeThreshold      int  `json:"nuke_threshold"`
	NukeWindowSec      int  `json:"nuke_window_sec"`
	PanicTimeoutSec    int  `json:"panic_timeout_sec"`
	ActionCooldownSec  int  `json:"action_cooldown_sec"`
	KickRaidJoiners    bool `json:"kick_raid_joiners"`
	LockChannelsOnRaid bool `json:"lock_channels_on_raid"`
	NotifyStaff        bool `json:"notify_staff"`
}

type AutoModConfig struct {
	ForbiddenWords []string `json:"forbidden_words"`
	AllowedDomains []string `json:"allowed_domains"`
	CapsRatio      float64  `json:"caps_ratio"`
	MinCapsLength  int      `json:"min_caps_length"`
	ZalgoLimit     int      `json:"zalgo_limit"`
	RepeatLimit    int      `json:"repeat_limit"`
}

type PermissionsConfig struct {
	ModeratorRoles []string `json:"moderator_roles"`
	AdminRoles     []string `json:"admin_roles"`
	ImmuneRoles    []string `json:"immune_roles"`
	ImmuneUsers    []string `json:"immune_users"`
	StaffChannels  []string `json:"staff_channels"`
}

type StorageConfig struct {
	DatabasePath string `json:"database_path"`
}

type NetworkConfig struct {
	APIBaseURL   string `json:"api_base_url"`
	HTTPPoolSize int    `json:"http_pool_size"`
	WorkerCount  int    `json:"worker_count"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
	}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if clientID := os.Getenv("CLIENT_ID"); clientID != "" {
		cfg.Bot.ClientID = clientID
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{},
		Detection: DetectionConfig{
			Enabled:            true,
			SpamThreshold:      5,
			SpamWindowSec:      10,
			SpamTimeoutMin:     10,
			RaidThreshold:      5,
			RaidWindowSec:      10,
			NukeThreshold:      3,
			NukeWindowSec:      30,
			PanicTimeoutSec:    300,
			ActionCooldownSec:  60,
			KickRaidJoiners:    true,
			LockChannelsOnRaid: true,
			NotifyStaff:        true,
		},
		AutoMod: AutoModConfig{
			ForbiddenWords: nil,
			AllowedDomains: []string{
				"youtube.com", "youtu.be", "twitter.com", "github.com",
				"stackoverflow.com", "reddit.com", "tenor.com", "giphy.com",
			},
			CapsRatio:     0.7,
			MinCapsLength: 10,
			ZalgoLimit:    5,
			RepeatLimit:   5,
		},
		Permissions: PermissionsConfig{
			ModeratorRoles: []string{"Moderator", "Admin", "Staff"},
			AdminRoles:     []string{"Admin", "Owner"},
			ImmuneRoles:    []string{"Admin", "Owner", "Bot"},
			StaffChannels: []string{
				"staff", "mod-chat", "staff-chat", "moderators",
				"admin", "admins", "security", "alerts", "mod-log",
			},
		},
		Storage: StorageConfig{
			DatabasePath: "data/aegisguard.db",
		},
		Network: NetworkConfig{
			APIBaseURL:   "https://discord.com/api/v10",
			HTTPPoolSize: 4,
			WorkerCount:  4,
		},
		LogPath: "logs/aegisguard.log",
	}
}
