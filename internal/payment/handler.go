// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/middleware"
)

const WebhookSecretHeader = "X-Webhook-Secret"

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts /payments. The webhook is authenticated by its
// shared secret instead of a user token.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Post("/preference", h.CreatePreference)
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Put("/{id}/status", h.UpdateStatus)
		})
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func (h *Handler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequestBody
	if !h.decode(w, r, &req) {
		return
	}

	pref, err := h.service.CreatePreference(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.ConsultationKind,
		req.ConsultationID,
	)
	if err != nil {
		core.ServiceError(w, err, "consultation")
		return
	}

	core.Created(w, pref)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Create(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.ConsultationKind,
		req.ConsultationID,
		req.PaymentMethod,
	)
	if err != nil {
		core.ServiceError(w, err, "consultation")
		return
	}

	core.Created(w, ToPaymentResponse(p))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.ServiceError(w, err, "payment")
		return
	}

	core.OK(w, ToPaymentResponseList(items))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.ServiceError(w, err, "payment")
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	var externalID *string
	if req.ExternalPaymentID != "" {
		externalID = &req.ExternalPaymentID
	}

	p, err := h.service.UpdateStatus(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"),
		req.Status,
		externalID,
	)
	if err != nil {
		core.ServiceError(w, err, "payment")
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&payload); err != nil {
		core.BadRequest(w, "invalid webhook payload")
		return
	}

	secret := r.Header.Get(WebhookSecretHeader)
	if secret == "" {
		secret = r.URL.Query().Get("secret")
	}

	p, err := h.service.HandleWebhook(r.Context(), secret, payload.Event())
	if err != nil {
		core.ServiceError(w, err, "payment")
		return
	}
	if p == nil {
		core.OK(w, map[string]any{"ignored": true})
		return
	}

	core.OK(w, map[string]any{"id": p.ID, "status": p.Status})
}
