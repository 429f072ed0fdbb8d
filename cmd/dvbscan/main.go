// Command dvbscan seeds the community triplet registry, builds a read-only
// browse tree over a scanned channel database, and serves scan progress
// metrics.
//
// The scan engine itself (internal/scanner) only consumes a tuner frontend
// and a demux section-filter primitive through the narrow interfaces in
// internal/sifilter; it never talks to hardware directly. Driving a live
// scan therefore requires a deployment to supply a concrete
// sifilter.Frontend/sifilter.Demux pair for its tuner hardware and wire
// scanner.New/Start itself — that adapter is outside this repo's scope.
// This binary wires everything scan-adjacent that doesn't require one:
// seeding, browsing, and metrics.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plextuner/dvbscan/internal/channelfs"
	"github.com/plextuner/dvbscan/internal/config"
	"github.com/plextuner/dvbscan/internal/dvbseed"
	"github.com/plextuner/dvbscan/internal/scandb"
)

func main() {
	envFile := flag.String("env", "", "optional .env file to load before reading PLEX_SCAN_* vars")
	flag.Parse()

	if *envFile != "" {
		if err := config.LoadEnvFile(*envFile); err != nil {
			log.Fatalf("dvbscan: load env file: %v", err)
		}
	}
	cfg := config.Load()

	registry, err := dvbseed.Load(cfg.RegistryPath)
	if err != nil {
		log.Fatalf("dvbscan: load registry: %v", err)
	}
	if seedRegistry(registry, cfg) {
		if cfg.RegistryPath == "" {
			log.Println("dvbscan: seeded registry but PLEX_SCAN_REGISTRY is unset; not persisting")
		} else if err := registry.Save(cfg.RegistryPath); err != nil {
			log.Printf("dvbscan: save registry: %v", err)
		} else {
			log.Printf("dvbscan: registry saved to %s", cfg.RegistryPath)
		}
	}

	store, err := scandb.Open(cfg.ScanDBPath)
	if err != nil {
		log.Fatalf("dvbscan: open scan database: %v", err)
	}
	defer store.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("dvbscan: metrics listening on %s", cfg.MetricsAddr)
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Fatalf("dvbscan: metrics server: %v", err)
		}
	}()

	if cfg.MountPoint != "" {
		snap, err := channelfs.Build(store)
		if err != nil {
			log.Fatalf("dvbscan: build channel tree: %v", err)
		}
		log.Printf("dvbscan: mounting channel browse tree at %s", cfg.MountPoint)
		if err := channelfs.MountWithAllowOther(cfg.MountPoint, snap, cfg.AllowOther); err != nil {
			log.Fatalf("dvbscan: mount: %v", err)
		}
		return
	}

	waitForShutdown()
}

// seedRegistry imports every configured source into registry, returning
// true if at least one import ran.
func seedRegistry(registry *dvbseed.Registry, cfg *config.Config) bool {
	imported := false
	if cfg.SeedLamedbPath != "" {
		added, total, err := registry.ImportLamedb(cfg.SeedLamedbPath)
		if err != nil {
			log.Printf("dvbscan: import lamedb %s: %v", cfg.SeedLamedbPath, err)
		} else {
			log.Printf("dvbscan: imported lamedb %s: %d/%d entries", cfg.SeedLamedbPath, added, total)
			imported = true
		}
	}
	if cfg.SeedVDRPath != "" {
		added, total, err := registry.ImportVDRChannels(cfg.SeedVDRPath)
		if err != nil {
			log.Printf("dvbscan: import VDR channels %s: %v", cfg.SeedVDRPath, err)
		} else {
			log.Printf("dvbscan: imported VDR channels %s: %d/%d entries", cfg.SeedVDRPath, added, total)
			imported = true
		}
	}
	if cfg.SeedTvheadendPath != "" {
		added, total, err := registry.ImportTvheadendChannels(cfg.SeedTvheadendPath)
		if err != nil {
			log.Printf("dvbscan: import TvHeadend channels %s: %v", cfg.SeedTvheadendPath, err)
		} else {
			log.Printf("dvbscan: imported TvHeadend channels %s: %d/%d entries", cfg.SeedTvheadendPath, added, total)
			imported = true
		}
	}
	return imported
}

func waitForShutdown() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Println("dvbscan: shutting down")
}
