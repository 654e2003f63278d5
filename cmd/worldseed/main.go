package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"terramesh.dev/internal/config"
	"terramesh.dev/internal/persistence/blockdb"
	"terramesh.dev/internal/world"
	"terramesh.dev/internal/worldgen"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/terramesh.yaml", "config path")
		dbPath     = flag.String("db", "", "block database path (overrides config)")
		seed       = flag.Int64("seed", 1337, "world seed")
		radius     = flag.Int("radius", 8, "chunk radius to generate around the origin")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[worldseed] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*dbPath) != "" {
		cfg.WorldDB = *dbPath
	}
	if *radius < 0 {
		logger.Fatalf("radius must be >= 0, got %d", *radius)
	}

	params := worldgen.Params{Seed: *seed}
	for name, dst := range map[string]*world.Material{
		"stone": &params.Stone,
		"dirt":  &params.Dirt,
		"grass": &params.Grass,
		"sand":  &params.Sand,
		"wood":  &params.Wood,
	} {
		m, ok := cfg.MaterialByName(name)
		if !ok {
			logger.Fatalf("config palette has no %q material", name)
		}
		*dst = m
	}

	gen, err := worldgen.NewGenerator(params)
	if err != nil {
		logger.Fatalf("generator: %v", err)
	}

	db, err := blockdb.Open(cfg.WorldDB)
	if err != nil {
		logger.Fatalf("open block database: %v", err)
	}
	defer db.Close()

	start := time.Now()
	written := 0
	for cz := -*radius; cz <= *radius; cz++ {
		for cx := -*radius; cx <= *radius; cx++ {
			pos := world.ChunkPos{CX: cx, CZ: cz}
			ch, err := gen.LoadChunk(pos)
			if err != nil {
				logger.Fatalf("generate chunk %d,%d: %v", cx, cz, err)
			}
			if err := db.WriteChunk(ch); err != nil {
				logger.Fatalf("write chunk %d,%d: %v", cx, cz, err)
			}
			written++
		}
		logger.Printf("row cz=%d done (%d chunks so far)", cz, written)
	}
	logger.Printf("seeded %d chunks into %s in %s", written, cfg.WorldDB, time.Since(start).Round(time.Millisecond))
}
