package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "bropt.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[tape]
length = 30000

[output]
flush = true

[cache]
enabled = true
path = "cache/progs.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Tape.Length != 30000 {
		t.Errorf("tape length = %d, want 30000", m.Tape.Length)
	}
	if !m.Output.Flush {
		t.Errorf("output flush = false, want true")
	}
	if !m.Cache.Enabled || m.Cache.Path != "cache/progs.db" {
		t.Errorf("cache = %+v, want enabled with explicit path", m.Cache)
	}
	wantDir, _ := filepath.Abs(dir)
	if m.Dir != wantDir {
		t.Errorf("dir = %q, want %q", m.Dir, wantDir)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[cache]
enabled = true
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Tape.Length != 65536 {
		t.Errorf("tape length = %d, want default 65536", m.Tape.Length)
	}
	want := filepath.Join(m.Dir, ".bropt", "programs.db")
	if m.Cache.Path != want {
		t.Errorf("cache path = %q, want %q", m.Cache.Path, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Errorf("expected error for missing bropt.toml")
	}
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[tape\nlength = ")
	if _, err := Load(dir); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[tape]\nlength = 1024\n")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m == nil {
		t.Fatalf("manifest not found from nested directory")
	}
	if m.Tape.Length != 1024 {
		t.Errorf("tape length = %d, want 1024", m.Tape.Length)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m != nil {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.Tape.Length != 65536 {
		t.Errorf("default tape length = %d, want 65536", m.Tape.Length)
	}
	if m.Cache.Enabled {
		t.Errorf("cache enabled by default")
	}
}
