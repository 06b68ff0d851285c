package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"anitag/internal/config"
	"anitag/internal/identification/encyclopedia"
	"anitag/internal/workflow"
)

func servicesConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig(t)
	base := t.TempDir()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Encyclopedia.SnapshotPath = filepath.Join(base, "reports.xml")
	return cfg
}

func TestOpenServicesRequiresSnapshot(t *testing.T) {
	cfg := servicesConfig(t)
	_, err := workflow.OpenServices(context.Background(), cfg, nil)
	if !errors.Is(err, encyclopedia.ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
}

func TestOpenServicesBuildsManager(t *testing.T) {
	for _, backend := range []string{config.CacheBackendJSON, config.CacheBackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := servicesConfig(t)
			cfg.Cache.Backend = backend
			cfg.Tagging.WriteCovers = true
			snapshot := `<report><item><id>14536</id><type>TV</type><name>Attack on Titan</name><vintage>2013-04-07</vintage></item></report>`
			if err := os.WriteFile(cfg.Encyclopedia.SnapshotPath, []byte(snapshot), 0o644); err != nil {
				t.Fatalf("write snapshot: %v", err)
			}

			services, err := workflow.OpenServices(context.Background(), cfg, nil)
			if err != nil {
				t.Fatalf("OpenServices: %v", err)
			}
			t.Cleanup(func() {
				if err := services.Close(); err != nil {
					t.Errorf("Close: %v", err)
				}
			})
			if services.Engine == nil || services.Songs == nil || services.Covers == nil || services.Titles == nil {
				t.Fatalf("incomplete services %+v", services)
			}
			if services.Manager(cfg, nil) == nil {
				t.Fatal("expected manager")
			}
			if _, err := os.Stat(cfg.CoverDir()); err != nil {
				t.Fatalf("cover directory not created: %v", err)
			}
		})
	}
}
