package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"redink/internal/preflight"
	"redink/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	ok := preflight.CheckDirectoryAccess("Data directory", dir)
	if !ok.Passed {
		t.Fatalf("existing directory should pass: %+v", ok)
	}

	missing := preflight.CheckDirectoryAccess("Data directory", filepath.Join(dir, "nope"))
	if missing.Passed || !strings.Contains(missing.Detail, "does not exist") {
		t.Fatalf("missing directory = %+v", missing)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	notDir := preflight.CheckDirectoryAccess("Data directory", file)
	if notDir.Passed || !strings.Contains(notDir.Detail, "not a directory") {
		t.Fatalf("file path = %+v", notDir)
	}
}

func TestCheckOCRWithoutKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.OCR.APIKey = ""

	result := preflight.CheckOCR(context.Background(), cfg)
	if result.Passed {
		t.Fatal("missing API key should fail")
	}
	if result.Detail != "API key missing" {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestRunAllCoversConfiguredPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.OCR.APIKey = ""

	results := preflight.RunAll(context.Background(), cfg)
	if len(results) != 6 {
		t.Fatalf("results = %d, want 6", len(results))
	}
	for _, result := range results[:5] {
		if !result.Passed {
			t.Fatalf("directory check failed: %+v", result)
		}
	}
	if results[5].Passed {
		t.Fatal("OCR check should fail without a key")
	}
}
