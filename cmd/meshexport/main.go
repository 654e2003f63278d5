package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"terramesh.dev/internal/config"
	"terramesh.dev/internal/mesh"
	"terramesh.dev/internal/persistence/blockdb"
	"terramesh.dev/internal/persistence/meshcache"
	"terramesh.dev/internal/pipeline"
	"terramesh.dev/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/terramesh.yaml", "config path")
		dbPath     = flag.String("db", "", "block database path (overrides config)")
		cx         = flag.Int("cx", 0, "center chunk x")
		cz         = flag.Int("cz", 0, "center chunk z")
		radius     = flag.Int("radius", 0, "chunk radius around the center to export")
		objPath    = flag.String("obj", "", "write a Wavefront OBJ to this path")
		cacheDir   = flag.String("cache", "", "also write mesh snapshots into this cache dir")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[meshexport] ", log.LstdFlags|log.Lmicroseconds)

	if strings.TrimSpace(*objPath) == "" && strings.TrimSpace(*cacheDir) == "" {
		logger.Fatalf("nothing to do: pass -obj and/or -cache")
	}
	if *radius < 0 {
		logger.Fatalf("radius must be >= 0, got %d", *radius)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*dbPath) != "" {
		cfg.WorldDB = *dbPath
	}

	db, err := blockdb.Open(cfg.WorldDB)
	if err != nil {
		logger.Fatalf("open block database: %v", err)
	}
	defer db.Close()

	// The window must cover the exported region plus the sampling ring.
	window := 2*(*radius)+3
	store, err := world.NewStore(db, window)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	center := world.ChunkPos{CX: *cx, CZ: *cz}
	if err := store.SetReference(center); err != nil {
		logger.Fatalf("load window around %d,%d: %v", center.CX, center.CZ, err)
	}

	params := pipeline.Params{
		KernelRadius:   cfg.KernelRadius,
		MaterialRadius: cfg.MaterialRadius,
		CellSize:       cfg.CellSize,
		SmoothWidth:    cfg.SmoothWidth,
	}
	builder, err := pipeline.New(store, params, cfg.Rigid())
	if err != nil {
		logger.Fatalf("pipeline: %v", err)
	}

	var cache *meshcache.Store
	digest := ""
	if strings.TrimSpace(*cacheDir) != "" {
		cache, err = meshcache.Open(*cacheDir)
		if err != nil {
			logger.Fatalf("open mesh cache: %v", err)
		}
		digest, err = meshcache.ParamsDigest(params)
		if err != nil {
			logger.Fatalf("cache digest: %v", err)
		}
	}

	var combined mesh.Mesh
	chunks := 0
	for dz := -*radius; dz <= *radius; dz++ {
		for dx := -*radius; dx <= *radius; dx++ {
			pos := world.ChunkPos{CX: *cx + dx, CZ: *cz + dz}
			m, err := builder.RebuildChunk(context.Background(), pos)
			if err != nil {
				logger.Fatalf("rebuild chunk %d,%d: %v", pos.CX, pos.CZ, err)
			}
			logger.Printf("chunk %d,%d: %d vertices, %d triangles",
				pos.CX, pos.CZ, len(m.Vertices), m.TriangleCount())

			if cache != nil {
				if err := cache.Write(pos, digest, &m); err != nil {
					logger.Fatalf("cache chunk %d,%d: %v", pos.CX, pos.CZ, err)
				}
			}
			appendMesh(&combined, &m)
			chunks++
		}
	}

	if strings.TrimSpace(*objPath) != "" {
		f, err := os.Create(*objPath)
		if err != nil {
			logger.Fatalf("create %s: %v", *objPath, err)
		}
		name := fmt.Sprintf("terrain_%d_%d_r%d", *cx, *cz, *radius)
		if err := mesh.WriteOBJ(f, name, &combined); err != nil {
			_ = f.Close()
			logger.Fatalf("write obj: %v", err)
		}
		if err := f.Close(); err != nil {
			logger.Fatalf("close obj: %v", err)
		}
		logger.Printf("wrote %s: %d chunks, %d vertices, %d triangles",
			*objPath, chunks, len(combined.Vertices), combined.TriangleCount())
	}
}

func appendMesh(dst, src *mesh.Mesh) {
	base := uint32(len(dst.Vertices))
	dst.Vertices = append(dst.Vertices, src.Vertices...)
	for _, idx := range src.Indices {
		dst.Indices = append(dst.Indices, base+idx)
	}
}
