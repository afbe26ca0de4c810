// Package handler exposes the verification service over HTTP for operators
// and for services that need a gate decision without a chat platform.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verigate/internal/identity"
	"verigate/internal/verification/models"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/platform/middleware/admin"
	"verigate/pkg/requestcontext"
)

// Service is the verification behaviour the handler needs.
type Service interface {
	SubmitCredential(ctx context.Context, sub models.Submission) (models.Outcome, error)
	CheckGate(ctx context.Context, userID string) models.GateDecision
	Status(ctx context.Context, userID string) models.StatusReport
	OnMemberJoin(ctx context.Context, member models.Member) error
	Remove(ctx context.Context, userID string) error
}

// Handler serves the verification HTTP API.
type Handler struct {
	service      Service
	logger       *slog.Logger
	adminToken   string
	serviceToken string
}

// New creates a Handler. The /v1 routes require serviceToken and the admin
// routes require adminToken; an empty token disables its routes.
func New(service Service, logger *slog.Logger, adminToken, serviceToken string) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		adminToken:   adminToken,
		serviceToken: serviceToken,
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		// Callers name the user in the request, so only trusted services may.
		r.Use(admin.RequireServiceToken(h.serviceToken, h.logger))
		r.Get("/gate/{userID}", h.handleGate)
		r.Get("/status/{userID}", h.handleStatus)
		r.Post("/credentials", h.handleSubmit)
		r.Post("/members/{userID}/join", h.handleJoin)
	})
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Delete("/admin/records/{userID}", h.handleRemove)
	})
}

type identityResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	DisplayName      string `json:"display_name,omitempty"`
	HasVerifiedBadge bool   `json:"has_verified_badge,omitempty"`
}

func toIdentityResponse(id *identity.Identity) *identityResponse {
	if id == nil {
		return nil
	}
	return &identityResponse{
		ID:               id.ID,
		Name:             id.Name,
		DisplayName:      id.DisplayName,
		HasVerifiedBadge: id.HasVerifiedBadge,
	}
}

type gateResponse struct {
	Allowed     bool              `json:"allowed"`
	Reason      string            `json:"reason,omitempty"`
	FailureKind string            `json:"failure_kind,omitempty"`
	Revalidated bool              `json:"revalidated"`
	ValidatedAt *time.Time        `json:"validated_at,omitempty"`
	Identity    *identityResponse `json:"identity,omitempty"`
}

type statusResponse struct {
	UserID           string            `json:"user_id"`
	State            string            `json:"state"`
	Verified         bool              `json:"verified"`
	CredentialStored bool              `json:"credential_stored"`
	GatedAccess      bool              `json:"gated_access"`
	LastValidatedAt  *time.Time        `json:"last_validated_at,omitempty"`
	Identity         *identityResponse `json:"identity,omitempty"`
}

type submitRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Credential  string `json:"credential"`
}

type submitResponse struct {
	Accepted bool              `json:"accepted"`
	Relinked bool              `json:"relinked,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Identity *identityResponse `json:"identity,omitempty"`
}

type joinRequest struct {
	DisplayName string `json:"display_name"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (h *Handler) handleGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	d := h.service.CheckGate(ctx, userID)
	httputil.WriteJSON(w, http.StatusOK, gateResponse{
		Allowed:     d.Allowed,
		Reason:      string(d.Reason),
		FailureKind: string(d.FailureKind),
		Revalidated: d.Revalidated,
		ValidatedAt: timePtr(d.ValidatedAt),
		Identity:    toIdentityResponse(d.Identity),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := h.service.Status(r.Context(), chi.URLParam(r, "userID"))
	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		UserID:           report.UserID,
		State:            string(report.State),
		Verified:         report.Verified,
		CredentialStored: report.CredentialStored,
		GatedAccess:      report.GatedAccess,
		LastValidatedAt:  timePtr(report.LastValidatedAt),
		Identity:         toIdentityResponse(report.Identity),
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.DecodeJSON[submitRequest](w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid credential submission",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out, err := h.service.SubmitCredential(ctx, models.Submission{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Credential:  req.Credential,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !out.Accepted {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, submitResponse{
		Accepted: out.Accepted,
		Relinked: out.Relinked,
		Kind:     string(out.Kind),
		Identity: toIdentityResponse(out.Identity),
	})
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m := models.Member{UserID: chi.URLParam(r, "userID")}
	if r.ContentLength > 0 {
		req, err := httputil.DecodeJSON[joinRequest](w, r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		m.DisplayName = req.DisplayName
	}

	if err := h.service.OnMemberJoin(ctx, m); err != nil {
		h.logger.ErrorContext(ctx, "onboarding failed",
			"user_id", m.UserID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "userID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
