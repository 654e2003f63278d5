package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terramesh.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window != 5 || cfg.KernelRadius != 0.9 || cfg.CellSize != 0.5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
world_db: /tmp/w.db
window: 7
kernel_radius: 1.2
material_radius: 0.5
cell_size: 0.25
smooth_width: 0.8
materials:
  - {id: 1, name: dirt}
  - {id: 3, name: stone}
  - {id: 4, name: wood}
rigid_blocks:
  - {x: 4.5, y: 66.5, z: -3.5, material: wood}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window != 7 || cfg.KernelRadius != 1.2 || cfg.WorldDB != "/tmp/w.db" {
		t.Fatalf("fields not applied: %+v", cfg)
	}
	if m, ok := cfg.MaterialByName("stone"); !ok || m != 3 {
		t.Fatalf("stone lookup: %v %v", m, ok)
	}

	rigid := cfg.Rigid()
	if len(rigid) != 1 {
		t.Fatalf("got %d rigid blocks, want 1", len(rigid))
	}
	if rigid[0].Center.X != 4.5 || rigid[0].Material != 4 {
		t.Fatalf("rigid block mangled: %+v", rigid[0])
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"even window", "window: 4", "window"},
		{"zero radius", "kernel_radius: 0", "kernel_radius"},
		{"negative smooth width", "smooth_width: -1", "smooth_width"},
		{"duplicate id", "materials:\n  - {id: 1, name: dirt}\n  - {id: 1, name: stone}", "duplicate material id"},
		{"air id", "materials:\n  - {id: 0, name: void}", "out of range"},
		{"big id", "materials:\n  - {id: 16, name: huge}", "out of range"},
		{"unknown rigid material", "rigid_blocks:\n  - {x: 0, y: 64, z: 0, material: lava}", "not in palette"},
	}
	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.body))
		if err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
