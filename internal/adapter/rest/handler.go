package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jlmsdev/webCarros/internal/auth"
	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"go.uber.org/zap"
)

type ListingService interface {
	SubmitListing(ctx context.Context, session domain.Session) (*domain.Listing, error)
	DeleteListing(ctx context.Context, session domain.Session, id string) (*domain.DeleteOutcome, error)
	Search(ctx context.Context, term string) ([]*domain.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error)
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

type DraftService interface {
	GetDraft(ctx context.Context, session domain.Session) (*domain.Draft, error)
	UpdateDraft(ctx context.Context, session domain.Session, fields domain.DraftFields) (*domain.Draft, *domain.ValidationError, error)
	DiscardDraft(ctx context.Context, session domain.Session) ([]domain.ImageFailure, error)
}

type ImageService interface {
	SubmitImage(ctx context.Context, session domain.Session, upload domain.Upload) (*domain.ImageRecord, error)
	RemoveImage(ctx context.Context, session domain.Session, name string) error
}

type SessionService interface {
	Logout(ctx context.Context, id *auth.Identity) error
}

type Handler struct {
	listings       ListingService
	drafts         DraftService
	images         ImageService
	sessions       SessionService
	maxUploadBytes int64
	logger         *logger.Logger
}

func NewHandler(listings ListingService, drafts DraftService, images ImageService, sessions SessionService, maxUploadBytes int64, log *logger.Logger) *Handler {
	return &Handler{
		listings:       listings,
		drafts:         drafts,
		images:         images,
		sessions:       sessions,
		maxUploadBytes: maxUploadBytes,
		logger:         log.Named("RESTHandler"),
	}
}

type listingsResponse struct {
	Listings []*domain.Listing `json:"listings"`
}

type draftResponse struct {
	Draft  *domain.Draft     `json:"draft"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	s, err := auth.SessionFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return domain.Session{}, false
	}
	return s, true
}

func (h *Handler) HandleSearchListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingsResponse{Listings: listings})
}

func (h *Handler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) HandleMyListings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	listings, err := h.listings.ListByOwner(r.Context(), s.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingsResponse{Listings: listings})
}

func (h *Handler) HandleSubmitListing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	listing, err := h.listings.SubmitListing(r.Context(), s)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, listing)
}

func (h *Handler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	outcome, err := h.listings.DeleteListing(r.Context(), s, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if outcome.Partial() {
		h.logger.Warn("listing deleted with orphaned images", zap.String("listing_id", id), zap.Int("failures", len(outcome.Failures)))
		status = http.StatusMultiStatus
	}
	h.writeJSON(w, status, outcome)
}

func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	draft, err := h.drafts.GetDraft(r.Context(), s)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) HandleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var fields domain.DraftFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.logger.Debug("invalid draft body", zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	draft, verr, err := h.drafts.UpdateDraft(r.Context(), s, fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if verr != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, draftResponse{Draft: draft, Fields: verr.Fields})
		return
	}
	h.writeJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) HandleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	failures, err := h.drafts.DiscardDraft(r.Context(), s)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(failures) > 0 {
		h.writeJSON(w, http.StatusMultiStatus, map[string]interface{}{"failures": failures})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSubmitImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if r.ContentLength > h.maxUploadBytes {
		h.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "image is too large"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "image is too large"})
			return
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read upload"})
		return
	}

	rec, err := h.images.SubmitImage(r.Context(), s, domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleRemoveImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.images.RemoveImage(r.Context(), s, chi.URLParam(r, "name")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated)
		return
	}
	if err := h.sessions.Logout(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
