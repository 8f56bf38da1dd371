package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanMigrationFiles(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		"000001_reports.up.sql",
		"000001_reports.down.sql",
		"000002_findings_indexes.up.sql",
		"000002_findings_indexes.down.sql",
		"notes.txt",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	versions, err := scanMigrationFiles(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"000001", "000002"}
	if len(versions) != len(want) {
		t.Fatalf("versions = %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, versions[i], want[i])
		}
	}
}

func TestScanMigrationFiles_MissingDir(t *testing.T) {
	if _, err := scanMigrationFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}
