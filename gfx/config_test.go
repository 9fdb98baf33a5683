package gfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holly.toml")
	body := `
[video]
depth = 4
dither = false

[board]
low_res = true
vertical = true
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	got := LoadConfigOrDefault(path)
	dither := false
	want := Config{
		Video: VideoConfig{Depth: 4, Dither: &dither},
		Board: BoardConfig{LowRes: true, Vertical: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	got := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	if diff := cmp.Diff(DefaultConfig(), got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigDefaultDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holly.toml")
	if err := os.WriteFile(path, []byte("[board]\nlow_res = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfigOrDefault(path)
	if cfg.Video.Depth != Depth1555 {
		t.Errorf("depth = %d, want %d", cfg.Video.Depth, Depth1555)
	}
	if !cfg.Board.LowRes {
		t.Errorf("low_res not decoded")
	}
}
