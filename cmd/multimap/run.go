package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/paulokuns/rspamd/pkg/config"
	"github.com/paulokuns/rspamd/pkg/multimap/lookup"
	"github.com/paulokuns/rspamd/pkg/multimap/message"
	"github.com/paulokuns/rspamd/pkg/telemetry/metrics"
)

var runFlags struct {
	listen string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve evaluations over HTTP",
	Long: `Build the configured modules and serve them:

  POST /check    evaluate a JSON message description
  GET  /healthz  liveness probe
  GET  /metrics  prometheus metrics

File-backed maps hot-reload on change when maps.watch is enabled, and on
a cron schedule when maps.refresh is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listen, "listen", "l", ":8954", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	policy, err := config.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer policy.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Maps.Watch {
		debounce, err := cfg.Maps.DebounceInterval()
		if err != nil {
			return err
		}
		watcher, err := lookup.NewWatcher(debounce, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()

		for _, f := range policy.Maps.Files() {
			if err := watcher.Add(f); err != nil {
				return err
			}
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("map watcher stopped", "error", err)
			}
		}()
	}

	if cfg.Maps.Refresh != "" {
		refresher := lookup.NewRefresher(logger)
		for _, f := range policy.Maps.Files() {
			refresher.Add(f)
		}
		if err := refresher.Start(cfg.Maps.Refresh); err != nil {
			return err
		}
		defer refresher.Stop()
	}

	registry := prometheus.NewRegistry()
	rm := metrics.NewRulesetMetrics(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/check", checkHandler(policy, rm, logger))

	server := &http.Server{
		Addr:         runFlags.listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("multimap server listening",
			"addr", runFlags.listen,
			"modules", len(policy.Rulesets),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// checkRequest is the JSON message description POST /check accepts.
type checkRequest struct {
	IP       string              `json:"ip"`
	Helo     string              `json:"helo"`
	Hostname string              `json:"hostname"`
	User     string              `json:"user"`
	From     string              `json:"from"`
	Rcpts    []string            `json:"rcpt"`
	Headers  map[string][]string `json:"headers"`
}

type checkResponse struct {
	ScanID  string         `json:"scan_id"`
	Results []moduleResult `json:"results"`
}

func checkHandler(policy *config.Policy, rm *metrics.RulesetMetrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
			return
		}

		msg := &message.Message{
			Helo:         req.Helo,
			Hostname:     req.Hostname,
			User:         req.User,
			EnvelopeFrom: req.From,
			Rcpts:        req.Rcpts,
		}
		if req.IP != "" {
			addr, err := netip.ParseAddr(req.IP)
			if err != nil {
				http.Error(w, fmt.Sprintf("parse ip: %v", err), http.StatusBadRequest)
				return
			}
			msg.SenderIP = addr
		}
		for name, values := range req.Headers {
			for _, value := range values {
				msg.AddHeader(name, value)
			}
		}

		scanID := uuid.NewString()
		resp := checkResponse{ScanID: scanID}
		for _, rs := range policy.Rulesets {
			res := rs.Evaluate(r.Context(), msg)
			rm.RecordEvaluation(rs.Module(), res)
			resp.Results = append(resp.Results, newModuleResult(rs.Module(), res))
		}

		logger.Info("scan complete",
			"scan_id", scanID,
			"modules", len(resp.Results),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("write response", "error", err)
		}
	})
}
