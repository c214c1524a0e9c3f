package cachex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type feedSnapshot struct {
	Versions []string
}

func TestGetOrInitMemoizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.msgpack.z")
	mgr := New[feedSnapshot](path, time.Hour)

	calls := 0
	compute := func(context.Context) (feedSnapshot, error) {
		calls++
		return feedSnapshot{Versions: []string{"3.12.0", "3.12.1"}}, nil
	}

	first, err := mgr.GetOrInit(context.Background(), compute)
	if err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if len(first.Versions) != 2 {
		t.Fatalf("unexpected value %+v", first)
	}
	if _, err := mgr.GetOrInit(context.Background(), compute); err != nil {
		t.Fatalf("second GetOrInit: %v", err)
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backing file missing: %v", err)
	}
}

func TestGetOrInitReadsFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.msgpack.z")

	writer := New[feedSnapshot](path, time.Hour)
	if _, err := writer.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{Versions: []string{"3.11.4"}}, nil
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	reader := New[feedSnapshot](path, time.Hour)
	value, err := reader.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		t.Fatal("compute must not run for a fresh file")
		return feedSnapshot{}, nil
	})
	if err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if len(value.Versions) != 1 || value.Versions[0] != "3.11.4" {
		t.Fatalf("unexpected value %+v", value)
	}
}

func TestGetOrInitExpiredFileRecomputes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.msgpack.z")

	writer := New[feedSnapshot](path, time.Hour)
	if _, err := writer.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{Versions: []string{"stale"}}, nil
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("age cache file: %v", err)
	}

	reader := New[feedSnapshot](path, time.Hour)
	value, err := reader.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{Versions: []string{"fresh"}}, nil
	})
	if err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if value.Versions[0] != "fresh" {
		t.Fatalf("expected recompute, got %+v", value)
	}
}

func TestGetOrInitCorruptFileRecomputes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.msgpack.z")
	if err := os.WriteFile(path, []byte("not zlib"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	mgr := New[feedSnapshot](path, time.Hour)
	value, err := mgr.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{Versions: []string{"recovered"}}, nil
	})
	if err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if value.Versions[0] != "recovered" {
		t.Fatalf("unexpected value %+v", value)
	}
}

func TestGetOrInitComputeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.msgpack.z")
	mgr := New[feedSnapshot](path, time.Hour)

	wantErr := errors.New("feed unreachable")
	if _, err := mgr.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{}, wantErr
	}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no file should be written on error, stat err = %v", err)
	}
}

func TestRefreshBypassesFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.msgpack.z")
	mgr := New[feedSnapshot](path, time.Hour)

	if _, err := mgr.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{Versions: []string{"old"}}, nil
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	value, err := mgr.Refresh(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{Versions: []string{"new"}}, nil
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if value.Versions[0] != "new" {
		t.Fatalf("unexpected value %+v", value)
	}
}

func TestAgeAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.msgpack.z")
	mgr := New[feedSnapshot](path, time.Hour)

	if _, ok := mgr.Age(); ok {
		t.Fatal("Age should report no file before first write")
	}
	if _, err := mgr.GetOrInit(context.Background(), func(context.Context) (feedSnapshot, error) {
		return feedSnapshot{}, nil
	}); err != nil {
		t.Fatalf("GetOrInit: %v", err)
	}
	if age, ok := mgr.Age(); !ok || age < 0 {
		t.Fatalf("Age = %v, %v", age, ok)
	}
	if err := mgr.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file should be removed, stat err = %v", err)
	}
}
