package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/competeiq/internal/application/analysis"
	appassets "github.com/bryanwahyu/competeiq/internal/application/assets"
	"github.com/bryanwahyu/competeiq/internal/application/progress"
	domai "github.com/bryanwahyu/competeiq/internal/domain/ai"
	domain "github.com/bryanwahyu/competeiq/internal/domain/analysis"
	domassets "github.com/bryanwahyu/competeiq/internal/domain/assets"
	"github.com/bryanwahyu/competeiq/internal/infra/push"
	"github.com/bryanwahyu/competeiq/internal/logger"
	"github.com/bryanwahyu/competeiq/internal/middleware"
)

const serviceName = "CompeteIQ API"

// Options wires the router
type Options struct {
	Analyses       *appanalysis.Service
	Assets         *appassets.Service
	Hub            *push.Hub
	APIKeys        map[string]string
	AllowedOrigins []string
	// Limiter is optional; when set /api routes are rate limited
	Limiter        *middleware.RateLimiter
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	analyses *appanalysis.Service
	assets   *appassets.Service
	hub      *push.Hub
}

func NewRouter(opts Options) http.Handler {
	r := &Router{analyses: opts.Analyses, assets: opts.Assets, hub: opts.Hub}
	mux := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := middleware.HealthHandler(serviceName, opts.HealthCheckers)
	mux.Get("/", health)
	mux.Get("/health", health)
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Get("/ws/analysis/{id}", r.handleWS)

	mux.Route("/api", func(rt chi.Router) {
		if opts.Limiter != nil {
			rt.Use(opts.Limiter.Middleware)
		}
		rt.Post("/analyze-company", r.wrap(r.handleAnalyze))
		rt.Get("/analysis/{id}/progress", r.wrap(r.handleProgress))
		rt.Delete("/analysis/{id}/progress", r.wrap(r.handleCleanup))
		rt.Get("/analysis/{id}/errors", r.wrap(r.handleErrors))
		rt.Post("/analysis/{id}/cancel", r.wrap(r.handleCancel))
		rt.Get("/analysis/{id}", r.wrap(r.handleReport))

		rt.Group(func(auth chi.Router) {
			auth.Use(middleware.APIKeyAuth(opts.APIKeys))
			auth.Get("/analyses", r.wrap(r.handleList))
			auth.Post("/generate-script", r.wrap(r.handleScript))
			auth.Post("/generate-images", r.wrap(r.handleImages))
			auth.Post("/generate-audio", r.wrap(r.handleAudio))
		})
	})

	mux.With(middleware.APIKeyAuth(opts.APIKeys)).Get("/auth/user", r.wrap(r.handleUser))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest marks malformed request bodies and parameters
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound),
				errors.Is(err, appanalysis.ErrTaskNotFound),
				errors.Is(err, progress.ErrUnknownRun):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, errBadRequest):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, domassets.ErrUnauthenticated):
				writeError(w, http.StatusUnauthorized, err.Error())
			case errors.Is(err, domai.ErrQuotaExceeded):
				writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
			default:
				logger.Log.WithField("path", req.URL.Path).WithError(err).Error("request failed")
				writeError(w, http.StatusInternalServerError, err.Error())
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"detail": msg})
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func analysisID(req *http.Request) (domain.AnalysisID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return "", badRequest("%v", err)
	}
	return domain.AnalysisID(id), nil
}

// POST /api/analyze-company
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var cmd appanalysis.SubmitCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	cmd.Name = middleware.SanitizeString(cmd.Name)
	cmd.WebsiteURL = middleware.SanitizeString(cmd.WebsiteURL)
	cmd.ProductDescription = middleware.SanitizeString(cmd.ProductDescription)
	cmd.MarketCategory = middleware.SanitizeString(cmd.MarketCategory)
	cmd.UserName = middleware.SanitizeString(cmd.UserName)
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := middleware.ValidateURL(cmd.WebsiteURL); err != nil {
		return fmt.Errorf("%w: website_url: %v", domain.ErrInvalidInput, err)
	}

	res, _, err := r.analyses.Submit(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/analysis/{id}/progress
func (r *Router) handleProgress(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	view, err := r.analyses.Progress(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, view)
}

// DELETE /api/analysis/{id}/progress
func (r *Router) handleCleanup(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	r.analyses.Cleanup(id)
	return writeJSON(w, http.StatusOK, map[string]string{"message": "Progress data cleaned up"})
}

// GET /api/analysis/{id}
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	view, err := r.analyses.Report(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, view)
}

// GET /api/analysis/{id}/errors?limit=
func (r *Router) handleErrors(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analyses.Errors(req.Context(), id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"analysis_id": id, "errors": list})
}

// POST /api/analysis/{id}/cancel
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	if err := r.analyses.Cancel(id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]string{"analysis_id": string(id), "status": "cancelling"})
}

// GET /api/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analyses.List(req.Context(), middleware.GetUserFromContext(req.Context()),
		middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/generate-script
func (r *Router) handleScript(w http.ResponseWriter, req *http.Request) error {
	var cmd appassets.ScriptCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	cmd.UserID = middleware.GetUserFromContext(req.Context())
	res, err := r.assets.GenerateScript(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /api/generate-images
func (r *Router) handleImages(w http.ResponseWriter, req *http.Request) error {
	var cmd appassets.ImagesCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	cmd.UserID = middleware.GetUserFromContext(req.Context())
	cmd.CompanyName = middleware.SanitizeString(cmd.CompanyName)
	images, err := r.assets.GenerateImages(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

// POST /api/generate-audio
func (r *Router) handleAudio(w http.ResponseWriter, req *http.Request) error {
	var cmd appassets.AudioCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	cmd.UserID = middleware.GetUserFromContext(req.Context())
	url, err := r.assets.GenerateAudio(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"audio_url": url})
}

// GET /auth/user
func (r *Router) handleUser(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{"user_id": middleware.GetUserFromContext(req.Context())})
}

// GET /ws/analysis/{id}
func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	id, err := analysisID(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "push channel disabled")
		return
	}
	r.hub.ServeWS(w, req, id)
}
