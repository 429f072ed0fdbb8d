package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the engine's env-driven settings: where the channel database
// and LCN side-file live, how the scan is paced and scoped, and where the
// optional browse mount and metrics server listen.
type Config struct {
	// Paths
	ScanDBPath   string // e.g. /var/lib/dvbscan/scan.db
	LCNPath      string // e.g. /var/lib/dvbscan/lcn.db
	RegistryPath string // dvbseed triplet registry snapshot

	// Seed importers (internal/dvbseed, wrapping internal/dvbdb)
	SeedLamedbPath    string
	SeedVDRPath       string
	SeedTvheadendPath string

	// Scan scope/behavior (spec §6 insertion policy, §4.5 driver flags)
	NetworkID           uint16
	UsePAT              bool
	OnlyFree            bool
	RemoveServices      bool
	DontRemoveUnscanned bool
	DontRemoveFeeds     bool
	Background          bool
	Debug               bool

	// Frontend pacing: minimum interval between successive tune() calls.
	TuneInterval time.Duration

	// Browse mount (internal/channelfs)
	MountPoint string
	AllowOther bool

	// Metrics (internal/scanmetrics)
	MetricsAddr string
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load()
// to use a .env file.
func Load() *Config {
	c := &Config{
		ScanDBPath:          getEnv("PLEX_SCAN_DB", "./scan.db"),
		LCNPath:             getEnv("PLEX_SCAN_LCN", "./lcn.db"),
		RegistryPath:        os.Getenv("PLEX_SCAN_REGISTRY"),
		SeedLamedbPath:      os.Getenv("PLEX_SCAN_SEED_LAMEDB"),
		SeedVDRPath:         os.Getenv("PLEX_SCAN_SEED_VDR"),
		SeedTvheadendPath:   os.Getenv("PLEX_SCAN_SEED_TVHEADEND"),
		NetworkID:           getEnvUint16("PLEX_SCAN_NETWORK_ID", 0),
		UsePAT:              getEnvBool("PLEX_SCAN_USE_PAT", true),
		OnlyFree:            getEnvBool("PLEX_SCAN_ONLY_FREE", false),
		RemoveServices:      getEnvBool("PLEX_SCAN_REMOVE_SERVICES", true),
		DontRemoveUnscanned: getEnvBool("PLEX_SCAN_DONT_REMOVE_UNSCANNED", false),
		DontRemoveFeeds:     getEnvBool("PLEX_SCAN_DONT_REMOVE_FEEDS", false),
		Background:          getEnvBool("PLEX_SCAN_BACKGROUND", false),
		Debug:               getEnvBool("PLEX_SCAN_DEBUG", false),
		TuneInterval:        getEnvDuration("PLEX_SCAN_TUNE_INTERVAL", 250*time.Millisecond),
		MountPoint:          os.Getenv("PLEX_SCAN_MOUNT"),
		AllowOther:          getEnvBool("PLEX_SCAN_MOUNT_ALLOW_OTHER", false),
		MetricsAddr:         getEnv("PLEX_SCAN_METRICS_ADDR", ":9109"),
	}
	if c.TuneInterval <= 0 {
		c.TuneInterval = 250 * time.Millisecond
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvUint16(key string, defaultVal uint16) uint16 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.ParseUint(v, 0, 16)
	if err != nil {
		return defaultVal
	}
	return uint16(n)
}
