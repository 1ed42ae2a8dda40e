package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/snarg/va-engine/internal/analyzer"
	"github.com/snarg/va-engine/internal/database"
	"github.com/snarg/va-engine/internal/diarize"
	"github.com/snarg/va-engine/internal/metrics"
	"github.com/snarg/va-engine/internal/report"
)

// AnalysisStore is the persistence surface the handlers need.
// *database.DB satisfies it.
type AnalysisStore interface {
	InsertAnalysis(ctx context.Context, sourceName, provider, model string, rep *analyzer.Report) (uuid.UUID, error)
	GetAnalysis(ctx context.Context, id uuid.UUID) (*database.Analysis, error)
	ListAnalyses(ctx context.Context, limit, offset int) ([]*database.Analysis, error)
}

// AnalysesHandler serves analysis creation and retrieval.
type AnalysesHandler struct {
	store          AnalysisStore
	provider       diarize.Provider
	maxUploadBytes int64
}

// NewAnalysesHandler creates the analyses handler. provider may be nil
// when the service only accepts precomputed turn lists.
func NewAnalysesHandler(store AnalysisStore, provider diarize.Provider, maxUploadBytes int64) *AnalysesHandler {
	return &AnalysesHandler{
		store:          store,
		provider:       provider,
		maxUploadBytes: maxUploadBytes,
	}
}

// turnsRequest is the JSON body for precomputed-turn submissions.
type turnsRequest struct {
	SourceName string          `json:"source_name"`
	Turns      []analyzer.Turn `json:"turns"`
}

// analysisResponse wraps a stored analysis for the API.
type analysisResponse struct {
	*database.Analysis
}

// Create handles POST /api/v1/analyses. The body is either a multipart
// upload (field "file": audio to diarize) or a JSON document with
// precomputed turns.
func (h *AnalysesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing or invalid Content-Type")
		return
	}

	var (
		sourceName string
		turns      []analyzer.Turn
		provider   = "precomputed"
		model      string
	)

	switch {
	case mediaType == "multipart/form-data":
		if h.provider == nil {
			WriteError(w, http.StatusBadRequest, "no diarization backend configured; submit turns as JSON")
			return
		}
		sourceName, turns, err = h.diarizeUpload(r)
		if err != nil {
			h.writeDiarizeError(w, r, err)
			return
		}
		provider = h.provider.Name()
		model = h.provider.Model()

	case mediaType == "application/json":
		var req turnsRequest
		body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		sourceName = req.SourceName
		if sourceName == "" {
			sourceName = "untitled"
		}
		turns = req.Turns

	default:
		WriteError(w, http.StatusUnsupportedMediaType, "expected multipart/form-data or application/json")
		return
	}

	rep, err := analyzer.Analyze(turns)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("invalid_turn").Inc()
		var ite *analyzer.InvalidTurnError
		if errors.As(err, &ite) {
			WriteErrorDetail(w, http.StatusUnprocessableEntity, "invalid turn", ite.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	metrics.InterruptionsDetectedTotal.Add(float64(rep.TotalInterruptions))

	id, err := h.store.InsertAnalysis(ctx, sourceName, provider, model, rep)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("insert analysis failed")
		WriteError(w, http.StatusInternalServerError, "failed to persist analysis")
		return
	}

	stored, err := h.store.GetAnalysis(ctx, id)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("read back analysis failed")
		WriteError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	WriteJSON(w, http.StatusCreated, analysisResponse{stored})
}

// errNoUploadFile marks a multipart body without a usable "file" part.
var errNoUploadFile = errors.New("missing file field")

// diarizeUpload spools the uploaded audio to a temp file and runs the
// diarization backend against it.
func (h *AnalysesHandler) diarizeUpload(r *http.Request) (string, []analyzer.Turn, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errNoUploadFile, err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "va-engine-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}

	turns, err := h.provider.Diarize(r.Context(), tmpPath, diarize.Opts{})
	if err != nil {
		return "", nil, err
	}

	name := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	return name, turns, nil
}

func (h *AnalysesHandler) writeDiarizeError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("diarization failed")
	metrics.AnalysesTotal.WithLabelValues("diarize_error").Inc()

	var je *diarize.JobError
	if errors.As(err, &je) {
		WriteErrorDetail(w, http.StatusBadGateway, "diarization job failed", je.Error())
		return
	}
	if errors.Is(err, errNoUploadFile) {
		WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	WriteErrorDetail(w, http.StatusBadGateway, "diarization failed", err.Error())
}

// Get handles GET /api/v1/analyses/{id}.
func (h *AnalysesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	a, err := h.store.GetAnalysis(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("get analysis failed")
		WriteError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	WriteJSON(w, http.StatusOK, analysisResponse{a})
}

// List handles GET /api/v1/analyses.
func (h *AnalysesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	analyses, err := h.store.ListAnalyses(r.Context(), p.Limit, p.Offset)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list analyses failed")
		WriteError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}

// ExportCSV handles GET /api/v1/analyses/{id}/interruptions.csv.
func (h *AnalysesHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	a, err := h.store.GetAnalysis(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("get analysis failed")
		WriteError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "interruptions-"+id.String()+".csv"))
	if err := report.WriteCSV(w, a.Report()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write csv failed")
	}
}
