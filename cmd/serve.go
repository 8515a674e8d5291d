package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/company"
	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/research"
	"github.com/sells-group/finresearch/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		router, jobs := buildMux(ctx, env.Orchestrator, env.Store, env.Registry)
		// Runs before env.Close: batch jobs still write to the store.
		defer jobs.Wait()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// batchJob is an asynchronous batch started over HTTP.
type batchJob struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`

	tracker *research.Tracker

	mu     sync.Mutex
	done   bool
	result *research.BatchResult
	err    error
}

type batchJobView struct {
	ID        string                   `json:"id"`
	Status    string                   `json:"status"`
	StartedAt time.Time                `json:"started_at"`
	Progress  research.ProgressSummary `json:"progress"`
	Result    *research.BatchResult    `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func (j *batchJob) view() batchJobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := batchJobView{
		ID:        j.ID,
		Status:    "running",
		StartedAt: j.StartedAt,
		Progress:  j.tracker.Summary(),
		Result:    j.result,
	}
	if j.done {
		v.Status = "completed"
	}
	if j.err != nil {
		v.Status = "failed"
		v.Error = j.err.Error()
	}
	return v
}

func (j *batchJob) finish(res *research.BatchResult, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done, j.result, j.err = true, res, err
}

// jobRegistry tracks batch jobs by id.
type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*batchJob
	wg   sync.WaitGroup
}

func (r *jobRegistry) add(j *batchJob) {
	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()
}

func (r *jobRegistry) get(id string) (*batchJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

// Wait blocks until every started job has finished.
func (r *jobRegistry) Wait() { r.wg.Wait() }

type researchRequest struct {
	Company string `json:"company"`
	Quarter string `json:"quarter"`
	Year    int    `json:"year"`
}

type batchRequest struct {
	Companies  []string `json:"companies"`
	Quarters   []string `json:"quarters"`
	Year       int      `json:"year"`
	Parallel   bool     `json:"parallel"`
	MaxWorkers int      `json:"max_workers"`
}

// buildMux wires the API routes. ctx bounds the lifetime of async batch
// jobs. reg may be nil, in which case names are used as given.
func buildMux(ctx context.Context, orch *research.Orchestrator, st store.Store, reg *company.Registry) (*chi.Mux, *jobRegistry) {
	jobs := &jobRegistry{jobs: map[string]*batchJob{}}
	defaultYear := time.Now().Year()
	if cfg != nil {
		defaultYear = cfg.Research.Year
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/companies", func(w http.ResponseWriter, _ *http.Request) {
		if reg == nil {
			respondJSON(w, http.StatusOK, []company.Company{})
			return
		}
		respondJSON(w, http.StatusOK, reg.All())
	})

	r.Post("/research", func(w http.ResponseWriter, req *http.Request) {
		var body researchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		q, err := model.ParseQuarter(body.Quarter)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.Year == 0 {
			body.Year = defaultYear
		}
		p := model.Period{Company: canonicalName(reg, body.Company), Quarter: q, Year: body.Year}
		if p.Company == "" {
			respondError(w, http.StatusBadRequest, "company is required")
			return
		}

		rec, err := orch.ResearchOne(req.Context(), p)
		if err != nil {
			zap.L().Error("research request failed", zap.String("period", p.String()), zap.Error(err))
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, rec)
	})

	r.Route("/research/{company}/{quarter}/{year}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			p, ok := periodParam(w, req, reg)
			if !ok {
				return
			}
			rec, err := st.Load(req.Context(), p)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if rec == nil {
				respondError(w, http.StatusNotFound, "no research stored for "+p.String())
				return
			}
			respondJSON(w, http.StatusOK, rec)
		})
		r.Get("/derived", func(w http.ResponseWriter, req *http.Request) {
			p, ok := periodParam(w, req, reg)
			if !ok {
				return
			}
			q, err := orch.QuarterlyRecord(req.Context(), p)
			if err != nil && q == nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if q == nil {
				respondError(w, http.StatusNotFound, "no successful research stored for "+p.String())
				return
			}
			respondJSON(w, http.StatusOK, q)
		})
		r.Delete("/", func(w http.ResponseWriter, req *http.Request) {
			p, ok := periodParam(w, req, reg)
			if !ok {
				return
			}
			found, err := st.Delete(req.Context(), p)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if !found {
				respondError(w, http.StatusNotFound, "no research stored for "+p.String())
				return
			}
			respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "period": p})
		})
	})

	r.Post("/batch", func(w http.ResponseWriter, req *http.Request) {
		var body batchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		quarters, err := parseQuarters(body.Quarters)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(quarters) == 0 {
			quarters = model.AllQuarters()
		}
		companies := body.Companies
		if len(companies) == 0 {
			companies = company.DefaultTargets()
		}
		for i, c := range companies {
			companies[i] = canonicalName(reg, c)
		}
		if body.Year == 0 {
			body.Year = defaultYear
		}

		job := &batchJob{
			ID:        uuid.NewString(),
			StartedAt: time.Now().UTC(),
			tracker:   research.NewTracker(),
		}
		br := research.BatchRequest{
			Companies:  companies,
			Quarters:   quarters,
			Year:       body.Year,
			Parallel:   body.Parallel,
			MaxWorkers: body.MaxWorkers,
			Tracker:    job.tracker,
		}
		jobs.add(job)

		jobs.wg.Add(1)
		go func() {
			defer jobs.wg.Done()
			res, err := orch.ResearchMany(ctx, br)
			job.finish(res, err)
			if err != nil {
				zap.L().Error("batch job failed", zap.String("job_id", job.ID), zap.Error(err))
				return
			}
			zap.L().Info("batch job complete",
				zap.String("job_id", job.ID),
				zap.Int("succeeded", res.Succeeded()),
				zap.Int("items", len(res.Outcomes)),
			)
		}()

		respondJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"id":     job.ID,
		})
	})

	r.Get("/batch/{id}", func(w http.ResponseWriter, req *http.Request) {
		job, ok := jobs.get(chi.URLParam(req, "id"))
		if !ok {
			respondError(w, http.StatusNotFound, "unknown batch id")
			return
		}
		respondJSON(w, http.StatusOK, job.view())
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		s, err := orch.Statistics(req.Context(), nil)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, s)
	})

	return r, jobs
}

func canonicalName(reg *company.Registry, name string) string {
	if reg == nil {
		return name
	}
	return canonicalNames(reg, []string{name})[0]
}

func periodParam(w http.ResponseWriter, req *http.Request, reg *company.Registry) (model.Period, bool) {
	q, err := model.ParseQuarter(chi.URLParam(req, "quarter"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return model.Period{}, false
	}
	year, err := strconv.Atoi(chi.URLParam(req, "year"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "year must be a number")
		return model.Period{}, false
	}
	return model.Period{
		Company: canonicalName(reg, chi.URLParam(req, "company")),
		Quarter: q,
		Year:    year,
	}, true
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
