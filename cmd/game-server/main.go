package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"partyseq/internal/config"
	"partyseq/internal/logging"
	"partyseq/internal/metrics"
	"partyseq/internal/registry"
	"partyseq/internal/roomstore"
	"partyseq/internal/sched"
	httptransport "partyseq/internal/transport/http"
	"partyseq/internal/ws"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg := appCfg.Server

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openStore(ctx, cfg)
	defer store.Close()

	queue := roomstore.NewWriteBehind(store, cfg.PersistFlushInterval)
	reg := registry.New(queue, registry.Options{
		MaxPlayers:        cfg.MaxPlayersPerRoom,
		MaxAge:            cfg.RoomMaxAge,
		DisconnectedGrace: cfg.DisconnectGrace,
	})
	if err := reg.Restore(ctx, store); err != nil {
		// Persisted snapshots are a convenience, not a prerequisite.
		log.Warn().Err(err).Msg("restore rooms failed; starting with an empty registry")
	}
	reg.StartJanitor(ctx, cfg.CleanupInterval)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	promReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)
	go trackActiveRooms(ctx, reg, m)

	timers := sched.New()
	defer timers.Stop()

	gw := ws.NewGateway(reg, timers, m, ws.Config{
		DisconnectBuffer: cfg.DisconnectBuffer,
		DisconnectGrace:  cfg.DisconnectGrace,
	})

	router := httptransport.NewRouter(reg, gw, promReg)
	httptransport.LogRoutes(router)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server stopped")
	}

	// Push pending room snapshots before exit.
	queue.Close()
	log.Info().Msg("bye")
}

// openStore picks the persistence backend: postgres when a DSN is set,
// the JSON file store when a path is set, in-memory otherwise. An
// unreachable backend degrades to memory-only rather than refusing to
// serve: rooms are short-lived and the registry is authoritative anyway.
func openStore(ctx context.Context, cfg config.ServerConfig) roomstore.Store {
	switch {
	case cfg.PostgresDSN != "":
		st, err := roomstore.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Warn().Err(err).Msg("postgres store unavailable; degrading to in-memory rooms")
			return roomstore.NewMemory()
		}
		log.Info().Msg("using postgres room store")
		return st
	case cfg.RoomFilePath != "":
		st, err := roomstore.NewFile(cfg.RoomFilePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.RoomFilePath).Msg("file store unavailable; degrading to in-memory rooms")
			return roomstore.NewMemory()
		}
		log.Info().Str("path", cfg.RoomFilePath).Msg("using file room store")
		return st
	default:
		log.Warn().Msg("no POSTGRES_DSN or ROOM_FILE_PATH set; rooms will not survive a restart")
		return roomstore.NewMemory()
	}
}

func trackActiveRooms(ctx context.Context, reg *registry.Registry, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ActiveRooms.Set(float64(reg.Count()))
		}
	}
}
