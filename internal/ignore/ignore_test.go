package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.log", "debug.log", false, true},
		{"*.log", "logs/debug.log", false, true},
		{"*.log", "debug.txt", false, false},

		{"zig-cache/", "zig-cache", true, true},
		{"zig-cache/", "zig-cache/o/abc.o", false, true},
		{"zig-cache/", "lib/zig-cache", true, true},
		{"zig-cache/", "zig-cache", false, false},

		{"/build", "build", true, true},
		{"/build", "build/out.bin", false, true},
		{"/build", "src/build", true, false},

		{"**/test", "src/deep/test", true, true},
		{"src/*.zig", "src/main.zig", false, true},
		{"src/*.zig", "src/sub/main.zig", false, false},
		{"src/**/*.zig", "src/sub/main.zig", false, true},
	}

	for _, tt := range tests {
		m := NewMatcher(tt.pattern)
		if got := m.Match(tt.path, tt.isDir); got != tt.want {
			t.Errorf("pattern %q, path %q (isDir=%v): got %v, want %v",
				tt.pattern, tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestNegation(t *testing.T) {
	m := NewMatcher("*.zon", "!build.zig.zon")

	if !m.Match("deps.zon", false) {
		t.Error("deps.zon should be ignored")
	}
	if m.Match("build.zig.zon", false) {
		t.Error("build.zig.zon should be re-included")
	}
}

func TestCommentsAndBlanks(t *testing.T) {
	m := NewMatcher("# comment", "", "   ", "/", "!")
	if m.Len() != 0 {
		t.Errorf("expected no rules, got %d", m.Len())
	}
}

func TestDecide(t *testing.T) {
	m := &Matcher{}
	m.Add(SourceVCS, VCSDirs...)
	m.Add(SourceConfig, "*.o", "!keep.o")

	r, ignored := m.Decide("obj/main.o", false)
	if !ignored || r.Source != SourceConfig || r.Line != 1 || r.Pattern != "*.o" {
		t.Errorf("Decide(obj/main.o) = %+v, %v", r, ignored)
	}
	r, ignored = m.Decide("keep.o", false)
	if ignored || r.Pattern != "!keep.o" || r.Line != 2 {
		t.Errorf("Decide(keep.o) = %+v, %v", r, ignored)
	}
	r, ignored = m.Decide(".git/HEAD", false)
	if !ignored || r.Source != SourceVCS {
		t.Errorf("Decide(.git/HEAD) = %+v, %v", r, ignored)
	}
	if _, ignored := m.Decide("src/main.zig", false); ignored {
		t.Error("unrelated path ignored")
	}
}

func TestVCSDirs(t *testing.T) {
	m := &Matcher{}
	m.Add(SourceVCS, VCSDirs...)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".git", true, true},
		{".git/HEAD", false, true},
		{"vendor/lib/.git", true, true},
		{".gitignore", false, false},
		{"src/main.zig", false, false},
		{".", true, false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.path, tt.isDir); got != tt.want {
			t.Errorf("Match(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestNilMatcher(t *testing.T) {
	var m *Matcher
	if m.Match("anything", false) {
		t.Error("nil matcher must not ignore anything")
	}
}

func TestForRepository(t *testing.T) {
	dir := t.TempDir()
	content := "# local\nzig-out/\n!keep.tmp\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := ForRepository(dir, Options{SkipVCS: true, Patterns: []string{"*.tmp"}})
	if err != nil {
		t.Fatalf("ForRepository: %v", err)
	}
	if !m.Match("zig-out", true) {
		t.Error("pattern from ignore file not applied")
	}
	if !m.Match("a/b.tmp", false) {
		t.Error("config pattern not applied")
	}
	if m.Match("keep.tmp", false) {
		t.Error("repository file should override config patterns")
	}
	if !m.Match(".git", true) {
		t.Error("VCS layer not applied")
	}
	r, _ := m.Decide("zig-out", true)
	if r.Source != filepath.Join(dir, FileName) || r.Line != 2 {
		t.Errorf("rule origin = %s:%d", r.Source, r.Line)
	}

	plain, err := ForRepository(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("ForRepository without file: %v", err)
	}
	if plain.Len() != 0 || plain.Match(".git", true) {
		t.Error("no layers configured, nothing should be ignored")
	}
}

func TestForRepository_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, FileName), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := ForRepository(dir, Options{}); err == nil {
		t.Error("expected error when the ignore file is a directory")
	}
}
