package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/classify"
	"github.com/sells-group/prospector/internal/discovery"
	"github.com/sells-group/prospector/internal/enrich"
	"github.com/sells-group/prospector/internal/monitoring"
	"github.com/sells-group/prospector/internal/outreach"
	"github.com/sells-group/prospector/internal/scrape"
	"github.com/sells-group/prospector/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control surface for the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		srvState := &serverState{
			st:           st,
			discoverBusy: make(chan struct{}, 1),
			enrichBusy:   make(chan struct{}, 1),
		}

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring)
			go checker.Run(ctx)
		}

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			stats, err := st.PipelineStats(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, stats)
		})

		r.Get("/monitoring/snapshot", func(w http.ResponseWriter, req *http.Request) {
			snap, err := monitoring.NewCollector(st).Collect(req.Context(), cfg.Monitoring.LookbackWindowHours)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})

		r.Post("/discover/run", srvState.handleDiscoverRun(ctx))
		r.Post("/enrich/run", srvState.handleEnrichRun(ctx))

		r.Post("/outreach/build", func(w http.ResponseWriter, req *http.Request) {
			b := outreach.NewBuilder(st, cfg.Outreach)
			res, err := b.Build(req.Context(), 100)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			mres, err := b.BuildManagement(req.Context(), 100)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]*outreach.BuildResult{
				"associations": res,
				"management":   mres,
			})
		})

		r.Post("/outreach/approve", func(w http.ResponseWriter, req *http.Request) {
			n, err := outreach.NewBuilder(st, cfg.Outreach).ApproveAll(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"approved": n})
		})

		r.Post("/outreach/send", func(w http.ResponseWriter, req *http.Request) {
			if err := cfg.Validate("outreach"); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			mailer := outreach.NewSMTPMailer(cfg.Outreach)
			report, err := outreach.NewSender(st, mailer, cfg.Outreach).SendBatch(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, report)
		})

		r.Get("/outreach/status", func(w http.ResponseWriter, req *http.Request) {
			stats, err := st.OutreachStats(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, stats)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// serverState serializes the long-running pipeline stages: only one sweep or
// enrichment batch runs at a time.
type serverState struct {
	st store.Store

	discoverBusy chan struct{}
	enrichBusy   chan struct{}
}

func (s *serverState) handleDiscoverRun(serverCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := cfg.Validate("discovery"); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !tryAcquire(s.discoverBusy) {
			writeError(w, http.StatusConflict, eris.New("a sweep is already running"))
			return
		}

		target, err := s.st.NextGeoTarget(req.Context())
		if err != nil {
			release(s.discoverBusy)
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusConflict, eris.New("no active geo targets"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		scraper := scrape.NewMapsScraper(
			cfg.Discovery.MapsBaseURL,
			cfg.Discovery.UserAgent,
			time.Duration(cfg.Discovery.QueryTimeoutSecs)*time.Second)
		driver := discovery.NewDriver(s.st, scraper, classify.New(cfg.Classify), cfg.Discovery)

		// The sweep outlives the request; it is tied to the server's
		// lifetime so shutdown still interrupts it.
		go func() {
			defer release(s.discoverBusy)
			if _, err := driver.Sweep(serverCtx, target); err != nil {
				zap.L().Error("sweep failed", zap.String("target", target.Name), zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"target": target.Name,
		})
	}
}

func (s *serverState) handleEnrichRun(serverCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Limit int `json:"limit"`
		}
		if req.ContentLength > 0 {
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
				return
			}
		}
		if body.Limit <= 0 {
			body.Limit = 25
		}

		if !tryAcquire(s.enrichBusy) {
			writeError(w, http.StatusConflict, eris.New("an enrichment batch is already running"))
			return
		}

		enricher := enrich.New(s.st, cfg.Enrich)
		go func() {
			defer release(s.enrichBusy)
			if _, err := enricher.Run(serverCtx, body.Limit); err != nil {
				zap.L().Error("enrichment batch failed", zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "accepted",
			"limit":  body.Limit,
		})
	}
}

func tryAcquire(slot chan struct{}) bool {
	select {
	case slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func release(slot chan struct{}) {
	<-slot
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
