package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paiml/sovereign-ai-stack-book/internal/config"
	"github.com/paiml/sovereign-ai-stack-book/internal/montecarlo"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

func (s *Server) registerSimulationRoutes(r chi.Router) {
	r.Post("/experiments", s.handleRunExperimentV1)
	r.Get("/experiments/default", s.handleDefaultExperimentV1)
	r.Get("/sweep", s.handleSweepV1)
	r.Get("/quorum/{f}", s.handleQuorumV1)
}

// handleRunExperimentV1 runs the experiment in the request body. The body
// format follows Content-Type and defaults to JSON.
func (s *Server) handleRunExperimentV1(w http.ResponseWriter, r *http.Request) {
	format, err := bodyFormat(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, ErrCodeUnsupportedFormat, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, err)
		return
	}
	e, err := config.Decode(data, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidConfig, err)
		return
	}
	// Size before Validate, which builds every agent pool.
	if !s.checkSize(w, e) {
		return
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidConfig, err)
		return
	}
	s.run(w, r, e)
}

func (s *Server) handleDefaultExperimentV1(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, config.Default())
}

// handleSweepV1 compares a single agent against majority voting for every f
// up to max_f. Query parameters: max_f (default 3), failure_rate (default
// 0.23), trials, tasks and seed.
func (s *Server) handleSweepV1(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxF, err := intParam(q.Get("max_f"), 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("max_f: %w", err))
		return
	}
	if maxF < 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, errors.New("max_f must be >= 0"))
		return
	}
	rate := config.DefaultFailureRate
	if v := q.Get("failure_rate"); v != "" {
		rate, err = strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("failure_rate: %w", err))
			return
		}
	}

	if agents := config.SweepAgents(maxF); agents > float64(s.maxSamples) {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
			fmt.Errorf("max_f %d runs %.0f agents per task, limit %d: %w", maxF, agents, s.maxSamples, ErrTooLarge))
		return
	}

	e := config.Sweep(maxF, rate)
	if e.Trials, err = intParam(q.Get("trials"), e.Trials); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("trials: %w", err))
		return
	}
	if e.TasksPerTrial, err = intParam(q.Get("tasks"), e.TasksPerTrial); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("tasks: %w", err))
		return
	}
	if v := q.Get("seed"); v != "" {
		if e.BaseSeed, err = strconv.ParseUint(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("seed: %w", err))
			return
		}
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidConfig, err)
		return
	}
	s.run(w, r, e)
}

func (s *Server) handleQuorumV1(w http.ResponseWriter, r *http.Request) {
	f, err := strconv.Atoi(chi.URLParam(r, "f"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("f: %w", err))
		return
	}
	q, err := quorum.New(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// run executes e and writes its report.
func (s *Server) run(w http.ResponseWriter, r *http.Request, e *config.Experiment) {
	if !s.checkSize(w, e) {
		return
	}
	rep, err := s.runner.Run(r.Context(), e)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rep)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, ErrCodeCanceled, err)
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, montecarlo.ErrInvalidRunConfig):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidConfig, err)
	default:
		s.logger.Error("experiment failed", "name", e.Name, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err)
	}
}

// checkSize writes an error and returns false when e would run more agent
// executions than the server allows.
func (s *Server) checkSize(w http.ResponseWriter, e *config.Experiment) bool {
	n, err := e.Executions()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidConfig, err)
		return false
	}
	if n > float64(s.maxSamples) {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
			fmt.Errorf("%.0f agent executions, limit %d: %w", n, s.maxSamples, ErrTooLarge))
		return false
	}
	return true
}

func bodyFormat(contentType string) (config.Format, error) {
	if contentType == "" {
		return config.FormatJSON, nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("content type %q: %w", contentType, err)
	}
	switch mt {
	case "application/json":
		return config.FormatJSON, nil
	case "application/toml":
		return config.FormatTOML, nil
	case "application/yaml", "application/x-yaml", "text/yaml":
		return config.FormatYAML, nil
	default:
		return "", fmt.Errorf("content type %q: %w", mt, config.ErrUnsupportedFormat)
	}
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
