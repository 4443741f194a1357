package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brandtrack-cli/internal/config"
	"github.com/sells-group/brandtrack-cli/internal/extract"
	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/report"
	"github.com/sells-group/brandtrack-cli/internal/run"
	"github.com/sells-group/brandtrack-cli/internal/store"
)

var servePort int

// shutdownTimeout bounds how long in-flight requests get to finish after a
// termination signal.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking server",
	Long:  "Serves run history and reports over HTTP and accepts tracking jobs for asynchronous execution.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		completer, err := extract.NewCompleter(cfg.Extraction.Provider, extractionKey(), extractionModel())
		if err != nil {
			return err
		}
		runner := run.New(cfg, st, run.ChromedpFactory(cfg.Browser), completer)

		mux := newServeMux(st, runner)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv, shutdownTimeout)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownServer drains in-flight requests. The signal context is already
// cancelled by the time this runs, so the drain window needs its own deadline.
func shutdownServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

// jobRunner is the subset of run.Runner the server uses.
type jobRunner interface {
	Execute(ctx context.Context, job model.Job) (*model.Run, error)
}

func newServeMux(st store.Store, runner jobRunner) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			zap.L().Warn("serve: store unreachable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		runs, err := st.ListRuns(r.Context(), store.RunFilter{
			Status: model.RunStatus(q.Get("status")),
			Brand:  q.Get("brand"),
		})
		if err != nil {
			http.Error(w, `{"error":"list runs failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	mux.HandleFunc("GET /runs/{id}/report", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		if err := report.WriteJSONL(w, run); err != nil {
			zap.L().Warn("serve: write report", zap.Error(err))
		}
	})

	mux.HandleFunc("GET /runs/{id}/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}
		if run.Result == nil {
			http.Error(w, `{"error":"run has no result"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, run.Result.Leaderboard)
	})

	mux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
		var job model.Job
		if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if err := config.ValidateJob(&job); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		// Execute asynchronously; run progress is observable through the
		// stored status.
		go func() {
			result, err := runner.Execute(context.Background(), job)
			if err != nil {
				zap.L().Error("serve: tracking run failed",
					zap.String("brand", job.MyBrand),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("serve: tracking run complete",
				zap.String("run_id", result.ID),
				zap.String("brand", job.MyBrand),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"brand":  job.MyBrand,
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
