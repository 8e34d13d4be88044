// AngelaMos | 2026
// handler.go

package consultation

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/middleware"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts every consultation kind under /consultations/{kind}.
// optionalAuth attaches the caller when a token is sent; the service decides
// whether an anonymous caller may use the kind. generateLimit guards the
// routes that call the model.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalAuth func(http.Handler) http.Handler,
	generateLimit func(http.Handler) http.Handler,
) {
	r.Route("/consultations/{kind}", func(r chi.Router) {
		r.Get("/prices", h.Prices)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Post("/{id}/archive", h.Archive)
			r.Get("/{id}/transcript", h.Transcript)
			r.With(generateLimit).Post("/{id}/generate", h.Generate)
		})
	})
}

func kindParam(r *http.Request) Kind {
	return Kind(chi.URLParam(r, "kind"))
}

func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	feature, err := h.service.Feature(kindParam(r))
	if err != nil {
		core.NotFound(w, "consultation kind")
		return
	}

	core.OK(w, PricesResponse{
		Kind:   feature.Kind,
		Title:  feature.Title,
		Paid:   feature.Paid,
		Prices: feature.PriceTable(),
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		core.BadRequest(w, "invalid request body")
		return
	}

	c, err := h.service.Create(
		r.Context(),
		middleware.GetUserID(r.Context()),
		kindParam(r),
		body,
	)
	if err != nil {
		core.ServiceError(w, err, "consultation")
		return
	}

	core.Created(w, ToCreateResponse(c))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(
		r.Context(),
		middleware.GetUserID(r.Context()),
		kindParam(r),
	)
	if err != nil {
		core.ServiceError(w, err, "consultation")
		return
	}

	core.OK(w, ToConsultationResponseList(items))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(
		r.Context(),
		middleware.GetUserID(r.Context()),
		kindParam(r),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.ServiceError(w, err, "consultation")
		return
	}

	core.OK(w, ToConsultationResponse(c))
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Generate(
		r.Context(),
		middleware.GetUserID(r.Context()),
		kindParam(r),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.ServiceError(w, err, "consultation")
		return
	}

	core.OK(w, ToGenerateResponse(c))
}

func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Archive(
		r.Context(),
		middleware.GetUserID(r.Context()),
		kindParam(r),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.ServiceError(w, err, "consultation")
		return
	}

	core.OK(w, ToConsultationResponse(c))
}

func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	url, expires, err := h.service.TranscriptURL(
		r.Context(),
		middleware.GetUserID(r.Context()),
		kindParam(r),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.ServiceError(w, err, "transcript")
		return
	}

	core.OK(w, TranscriptLinkResponse{URL: url, ExpiresAt: expires})
}
