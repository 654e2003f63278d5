package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"terramesh.dev/internal/config"
	"terramesh.dev/internal/mesh"
	"terramesh.dev/internal/persistence/blockdb"
	"terramesh.dev/internal/persistence/meshcache"
	"terramesh.dev/internal/pipeline"
	"terramesh.dev/internal/transport/ws"
	"terramesh.dev/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/terramesh.yaml", "config path")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		dbPath     = flag.String("db", "", "block database path (overrides config)")
		refCX      = flag.Int("ref_cx", 0, "reference chunk x")
		refCZ      = flag.Int("ref_cz", 0, "reference chunk z")
		noCache    = flag.Bool("no_mesh_cache", false, "disable the on-disk mesh cache")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[meshd] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.Listen = *addr
	}
	if strings.TrimSpace(*dbPath) != "" {
		cfg.WorldDB = *dbPath
	}

	db, err := blockdb.Open(cfg.WorldDB)
	if err != nil {
		logger.Fatalf("open block database: %v", err)
	}
	defer db.Close()

	store, err := world.NewStore(db, cfg.Window)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	ref := world.ChunkPos{CX: *refCX, CZ: *refCZ}
	if err := store.SetReference(ref); err != nil {
		logger.Printf("reference %d,%d partially loaded: %v", ref.CX, ref.CZ, err)
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

	var meshes ws.MeshProvider = builder
	if !*noCache {
		cache, err := meshcache.Open(cfg.MeshCache)
		if err != nil {
			logger.Fatalf("open mesh cache: %v", err)
		}
		digest, err := meshcache.ParamsDigest(params)
		if err != nil {
			logger.Fatalf("cache digest: %v", err)
		}
		meshes = &cachedMeshes{builder: builder, cache: cache, digest: digest, log: logger}
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(meshes, logger).Handler())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (db %s, window %d)", cfg.Listen, cfg.WorldDB, cfg.Window)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// cachedMeshes serves rebuilds through the on-disk mesh cache. Misses fall
// through to the builder and populate the cache on success.
type cachedMeshes struct {
	builder *pipeline.Builder
	cache   *meshcache.Store
	digest  string
	log     *log.Logger
}

func (c *cachedMeshes) RebuildChunk(ctx context.Context, pos world.ChunkPos) (mesh.Mesh, error) {
	if m, _, err := c.cache.Read(pos, c.digest); err == nil {
		return m, nil
	} else if !errors.Is(err, meshcache.ErrMiss) {
		c.log.Printf("mesh cache read %d,%d: %v", pos.CX, pos.CZ, err)
	}

	m, err := c.builder.RebuildChunk(ctx, pos)
	if err != nil {
		return mesh.Mesh{}, err
	}
	if err := c.cache.Write(pos, c.digest, &m); err != nil {
		c.log.Printf("mesh cache write %d,%d: %v", pos.CX, pos.CZ, err)
	}
	return m, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
