package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.ScanDBPath != "./scan.db" {
		t.Errorf("ScanDBPath default: got %q", c.ScanDBPath)
	}
	if c.LCNPath != "./lcn.db" {
		t.Errorf("LCNPath default: got %q", c.LCNPath)
	}
	if !c.UsePAT {
		t.Error("UsePAT should default true")
	}
	if !c.RemoveServices {
		t.Error("RemoveServices should default true")
	}
	if c.OnlyFree || c.DontRemoveUnscanned || c.DontRemoveFeeds || c.Background || c.Debug {
		t.Error("scan scope flags should default false")
	}
	if c.TuneInterval != 250*time.Millisecond {
		t.Errorf("TuneInterval default: got %v", c.TuneInterval)
	}
	if c.MetricsAddr != ":9109" {
		t.Errorf("MetricsAddr default: got %q", c.MetricsAddr)
	}
	if c.NetworkID != 0 {
		t.Errorf("NetworkID default: got %d", c.NetworkID)
	}
}

func TestLoad_scanScopeFlags(t *testing.T) {
	os.Clearenv()
	os.Setenv("PLEX_SCAN_USE_PAT", "false")
	os.Setenv("PLEX_SCAN_ONLY_FREE", "true")
	os.Setenv("PLEX_SCAN_REMOVE_SERVICES", "no")
	os.Setenv("PLEX_SCAN_DONT_REMOVE_UNSCANNED", "1")
	os.Setenv("PLEX_SCAN_DONT_REMOVE_FEEDS", "yes")
	os.Setenv("PLEX_SCAN_BACKGROUND", "true")
	os.Setenv("PLEX_SCAN_DEBUG", "1")
	c := Load()
	if c.UsePAT {
		t.Error("UsePAT should be false")
	}
	if !c.OnlyFree {
		t.Error("OnlyFree should be true")
	}
	if c.RemoveServices {
		t.Error("RemoveServices should be false")
	}
	if !c.DontRemoveUnscanned || !c.DontRemoveFeeds || !c.Background || !c.Debug {
		t.Error("flags should all be true")
	}
}

func TestLoad_networkIDAcceptsHex(t *testing.T) {
	os.Clearenv()
	os.Setenv("PLEX_SCAN_NETWORK_ID", "0x00C1")
	c := Load()
	if c.NetworkID != 0x00C1 {
		t.Errorf("NetworkID: got 0x%x, want 0xC1", c.NetworkID)
	}
}

func TestLoad_tuneIntervalAndMetricsAddr(t *testing.T) {
	os.Clearenv()
	os.Setenv("PLEX_SCAN_TUNE_INTERVAL", "500ms")
	os.Setenv("PLEX_SCAN_METRICS_ADDR", ":9200")
	c := Load()
	if c.TuneInterval != 500*time.Millisecond {
		t.Errorf("TuneInterval: got %v", c.TuneInterval)
	}
	if c.MetricsAddr != ":9200" {
		t.Errorf("MetricsAddr: got %q", c.MetricsAddr)
	}
}

func TestLoad_invalidTuneIntervalFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("PLEX_SCAN_TUNE_INTERVAL", "not-a-duration")
	c := Load()
	if c.TuneInterval != 250*time.Millisecond {
		t.Errorf("TuneInterval should fall back to default on parse error: got %v", c.TuneInterval)
	}
}

func TestLoad_seedAndMountPaths(t *testing.T) {
	os.Clearenv()
	os.Setenv("PLEX_SCAN_SEED_LAMEDB", "/srv/lamedb")
	os.Setenv("PLEX_SCAN_SEED_VDR", "/srv/channels.conf")
	os.Setenv("PLEX_SCAN_SEED_TVHEADEND", "/srv/channels.json")
	os.Setenv("PLEX_SCAN_REGISTRY", "/srv/registry.json")
	os.Setenv("PLEX_SCAN_MOUNT", "/mnt/dvbscan")
	os.Setenv("PLEX_SCAN_MOUNT_ALLOW_OTHER", "true")
	c := Load()
	if c.SeedLamedbPath != "/srv/lamedb" {
		t.Errorf("SeedLamedbPath: got %q", c.SeedLamedbPath)
	}
	if c.SeedVDRPath != "/srv/channels.conf" {
		t.Errorf("SeedVDRPath: got %q", c.SeedVDRPath)
	}
	if c.SeedTvheadendPath != "/srv/channels.json" {
		t.Errorf("SeedTvheadendPath: got %q", c.SeedTvheadendPath)
	}
	if c.RegistryPath != "/srv/registry.json" {
		t.Errorf("RegistryPath: got %q", c.RegistryPath)
	}
	if c.MountPoint != "/mnt/dvbscan" {
		t.Errorf("MountPoint: got %q", c.MountPoint)
	}
	if !c.AllowOther {
		t.Error("AllowOther should be true")
	}
}
