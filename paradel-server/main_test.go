package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"paradel/internal/cache"
	"paradel/internal/config"
	"paradel/internal/db"
)

func TestRunImportLoadsFixture(t *testing.T) {
	tempDir := t.TempDir()
	fixturePath := filepath.Join(tempDir, "fixture.yaml")
	dbPath := filepath.Join(tempDir, "paradel.db")

	fixture := `
types:
  - id: quote
    label: Quote
nodes:
  - nid: 7
    title: Landing page
paragraphs:
  - type: quote
    parent: node/7/field_blocks
  - type: quote
    parent: node/7/field_blocks
`
	if err := os.WriteFile(fixturePath, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := runImport([]string{"--from", fixturePath, "--db", dbPath}, zerolog.Nop()); err != nil {
		t.Fatalf("runImport: %v", err)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	n, err := db.CountInstances(context.Background(), database, "quote")
	if err != nil {
		t.Fatalf("count instances: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 quote instances after import, got %d", n)
	}
}

func TestRunImportRequiresFrom(t *testing.T) {
	if err := runImport([]string{"--db", filepath.Join(t.TempDir(), "x.db")}, zerolog.Nop()); err == nil {
		t.Fatalf("expected missing --from error")
	}
}

func TestApplyFlagsOverridesConfig(t *testing.T) {
	cfg := config.Default()
	applyFlags(&cfg, "9090", "", " /keys/admin.key ")
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.Database != "./paradel.db" {
		t.Fatalf("database should keep default, got %q", cfg.Database)
	}
	if cfg.AdminKeyOut != "/keys/admin.key" {
		t.Fatalf("admin key out = %q", cfg.AdminKeyOut)
	}
}

func TestCacheBinsDefaultToMemory(t *testing.T) {
	render, entity, closeFn, err := cacheBins(config.Default().Cache)
	if err != nil {
		t.Fatalf("cache bins: %v", err)
	}
	defer closeFn()
	if _, ok := render.(*cache.MemoryBin); !ok {
		t.Fatalf("expected memory render bin, got %T", render)
	}
	if render.Name() != cache.RenderBin || entity.Name() != cache.EntityBin {
		t.Fatalf("unexpected bin names %q %q", render.Name(), entity.Name())
	}
}

func TestCacheBinsUseRedisWhenConfigured(t *testing.T) {
	mr := miniredis.RunT(t)
	cc := config.Default().Cache
	cc.Redis.Addr = mr.Addr()
	cc.Redis.Prefix = "test:"

	render, entity, closeFn, err := cacheBins(cc)
	if err != nil {
		t.Fatalf("cache bins: %v", err)
	}
	defer closeFn()
	if _, ok := render.(*cache.RedisBin); !ok {
		t.Fatalf("expected redis render bin, got %T", render)
	}
	if _, ok := entity.(*cache.RedisBin); !ok {
		t.Fatalf("expected redis entity bin, got %T", entity)
	}
	if err := render.Set(context.Background(), "k", []byte("v"), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("test:render:k:k") {
		t.Fatalf("expected entry under the render namespace, keys=%v", mr.Keys())
	}
}

func TestRunImportInvalidatesSharedCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	tempDir := t.TempDir()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	render, err := cache.NewRedisBin(cache.RenderBin, client, "shared:", time.Hour)
	if err != nil {
		t.Fatalf("render bin: %v", err)
	}
	if err := render.Set(ctx, "paragraph_delete:quote", []byte("{}"), []string{"node:7", "paragraphs_item_list:quote"}); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	if err := render.Set(ctx, "other", []byte("{}"), []string{"node:99"}); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	configPath := filepath.Join(tempDir, "paradel.yaml")
	cfg := "database: " + filepath.Join(tempDir, "paradel.db") + "\ncache:\n  redis:\n    addr: " + mr.Addr() + "\n    prefix: \"shared:\"\n"
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fixturePath := filepath.Join(tempDir, "fixture.yaml")
	fixture := `
types:
  - id: quote
    label: Quote
nodes:
  - nid: 7
    title: Landing page
paragraphs:
  - type: quote
    parent: node/7/field_blocks
`
	if err := os.WriteFile(fixturePath, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := runImport([]string{"--config", configPath, "--from", fixturePath}, zerolog.Nop()); err != nil {
		t.Fatalf("runImport: %v", err)
	}

	if _, err := render.Get(ctx, "paragraph_delete:quote"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected the quote listing to be invalidated, got %v", err)
	}
	if _, err := render.Get(ctx, "other"); err != nil {
		t.Fatalf("unrelated entry should survive: %v", err)
	}
}
