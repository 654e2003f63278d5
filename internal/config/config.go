// Package config loads and validates the service configuration from YAML.
// Absent file or fields fall back to defaults; an invalid file is an error,
// never a silent partial load.
package config

import (
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"terramesh.dev/internal/field"
	"terramesh.dev/internal/world"
)

type Config struct {
	WorldDB   string `yaml:"world_db"`
	MeshCache string `yaml:"mesh_cache"`
	Listen    string `yaml:"listen"`

	// Window is the side of the square chunk window kept resident around the
	// reference position. Must be odd so the reference chunk sits centered.
	Window int `yaml:"window"`

	KernelRadius   float64 `yaml:"kernel_radius"`
	MaterialRadius float64 `yaml:"material_radius"`
	CellSize       float64 `yaml:"cell_size"`
	SmoothWidth    float64 `yaml:"smooth_width"`

	Materials   []MaterialSpec   `yaml:"materials"`
	RigidBlocks []RigidBlockSpec `yaml:"rigid_blocks,omitempty"`
}

type MaterialSpec struct {
	ID   uint8  `yaml:"id"`
	Name string `yaml:"name"`
}

// RigidBlockSpec places one unit block, merged smoothly into the terrain
// surface. Coordinates are the block center.
type RigidBlockSpec struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Z        float64 `yaml:"z"`
	Material string  `yaml:"material"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("terramesh.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("terramesh.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		WorldDB:        "./data/world.db",
		MeshCache:      "./data/meshcache",
		Listen:         ":8420",
		Window:         5,
		KernelRadius:   0.9,
		MaterialRadius: 0.6,
		CellSize:       0.5,
		SmoothWidth:    1.0,
		Materials: []MaterialSpec{
			{ID: 1, Name: "dirt"},
			{ID: 2, Name: "grass"},
			{ID: 3, Name: "stone"},
			{ID: 4, Name: "wood"},
			{ID: 5, Name: "sand"},
		},
	}
}

func (c Config) Validate() error {
	if c.Window < 1 || c.Window%2 == 0 {
		return fmt.Errorf("window must be odd and >= 1, got %d", c.Window)
	}
	if c.KernelRadius <= 0 {
		return fmt.Errorf("kernel_radius must be positive, got %g", c.KernelRadius)
	}
	if c.MaterialRadius <= 0 {
		return fmt.Errorf("material_radius must be positive, got %g", c.MaterialRadius)
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive, got %g", c.CellSize)
	}
	if c.SmoothWidth < 0 {
		return fmt.Errorf("smooth_width must be >= 0, got %g", c.SmoothWidth)
	}
	if len(c.Materials) == 0 {
		return fmt.Errorf("materials palette is empty")
	}

	byID := map[uint8]bool{}
	byName := map[string]bool{}
	for _, m := range c.Materials {
		if m.ID == uint8(world.Air) || m.ID >= world.MaxMaterials {
			return fmt.Errorf("material %q: id %d out of range [1,%d)", m.Name, m.ID, world.MaxMaterials)
		}
		if m.Name == "" {
			return fmt.Errorf("material id %d has no name", m.ID)
		}
		if byID[m.ID] {
			return fmt.Errorf("duplicate material id %d", m.ID)
		}
		if byName[m.Name] {
			return fmt.Errorf("duplicate material name %q", m.Name)
		}
		byID[m.ID] = true
		byName[m.Name] = true
	}

	for i, rb := range c.RigidBlocks {
		if !byName[rb.Material] {
			return fmt.Errorf("rigid_blocks[%d]: material %q not in palette", i, rb.Material)
		}
	}
	return nil
}

// MaterialByName resolves a palette name to its id.
func (c Config) MaterialByName(name string) (world.Material, bool) {
	for _, m := range c.Materials {
		if m.Name == name {
			return world.Material(m.ID), true
		}
	}
	return world.Air, false
}

// Rigid converts the configured rigid block placements into field form. Call
// only after Validate.
func (c Config) Rigid() []field.RigidBlock {
	out := make([]field.RigidBlock, 0, len(c.RigidBlocks))
	for _, rb := range c.RigidBlocks {
		m, _ := c.MaterialByName(rb.Material)
		out = append(out, field.UnitBlock(r3.Vec{X: rb.X, Y: rb.Y, Z: rb.Z}, m))
	}
	return out
}
