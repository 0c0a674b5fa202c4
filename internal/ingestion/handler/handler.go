package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/middleware"
)

type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

type Handler struct {
	ingester Ingester
	logger   *slog.Logger
}

func New(ing Ingester) *Handler {
	return &Handler{
		ingester: ing,
		logger:   slog.Default().With("component", "ingestion-handler"),
	}
}

// Routes lists the paths served by Register, for metric labels.
var Routes = []string{"/api/v1/documents"}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body := http.MaxBytesReader(w, r.Body, 2*validator.MaxBodyLength)
	var req ingestion.IngestRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed", "error", err, "status_code", status)
		middleware.WriteError(w, status, "ingestion failed")
		return
	}
	log.Info("document ingested", "doc_id", resp.DocumentID, "bytes", len(req.Body))
	middleware.WriteJSON(w, http.StatusAccepted, resp)
}
