package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadServerEnvDefaultsDBPath(t *testing.T) {
	t.Setenv("ONTOGENIC_SPACE_DB_PATH", "")

	env := loadServerEnv()
	if want := filepath.Join("data", "ontogenic.db"); env.DBPath != want {
		t.Errorf("db path = %q, want %q", env.DBPath, want)
	}
}

func TestLoadServerEnvReadsOverride(t *testing.T) {
	t.Setenv("ONTOGENIC_SPACE_DB_PATH", "/tmp/custom/runs.db")

	env := loadServerEnv()
	if env.DBPath != "/tmp/custom/runs.db" {
		t.Errorf("db path = %q, want %q", env.DBPath, "/tmp/custom/runs.db")
	}
}

func TestNewWithAddrRequiresAddress(t *testing.T) {
	t.Setenv("ONTOGENIC_SPACE_DB_PATH", filepath.Join(t.TempDir(), "runs.db"))

	if _, err := NewWithAddr("  "); err == nil {
		t.Fatal("expected error for blank address")
	}
}

func TestNewWithOptionsOverridesDBPath(t *testing.T) {
	t.Setenv("ONTOGENIC_SPACE_DB_PATH", "")

	dbPath := filepath.Join(t.TempDir(), "explicit.db")
	server, err := NewWithOptions(Options{Addr: "127.0.0.1:0", DBPath: dbPath})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	server.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("explicit db path not created: %v", err)
	}
}

func TestServerListenAndServeStopsOnCancel(t *testing.T) {
	t.Setenv("ONTOGENIC_SPACE_DB_PATH", filepath.Join(t.TempDir(), "runs.db"))

	server, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestServerCloseIsIdempotent(t *testing.T) {
	t.Setenv("ONTOGENIC_SPACE_DB_PATH", filepath.Join(t.TempDir(), "runs.db"))

	server, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	server.Close()
	server.Close()
}
