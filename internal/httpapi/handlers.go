package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"immobilier-assistant/internal/api"
	"immobilier-assistant/internal/calculator"
	"immobilier-assistant/internal/usecase"
)

// Handler adapts the usecases to HTTP.
type Handler struct {
	chat   ChatService
	calc   CalculatorService
	logger *slog.Logger
}

// RegisterRoutes mounts the session, quick-reply and calculator routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.createSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Delete("/", h.endSession)
		r.Post("/messages", h.sendMessage)
		r.Put("/draft", h.setDraft)
		r.Put("/language", h.setLanguage)
		r.Put("/visibility", h.setVisibility)
		r.Post("/quick-replies", h.quickReply)
		r.Post("/quick-actions/{section}", h.quickAction)
	})
	r.Get("/quick-replies", h.catalog)
	r.Post("/calculators/mortgage", h.mortgage)
	r.Post("/calculators/roi", h.roi)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	api.RespondError(w, h.logger.With("correlation_id", usecase.CorrelationID(r.Context())), err)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	// An empty body selects the default language.
	if err := api.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, err)
		return
	}
	view, err := h.chat.CreateSession(r.Context(), req.Language)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, api.NewSessionResponse(view))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.chat.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewSessionResponse(view))
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.EndSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req api.MessageRequest
	if err := api.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.chat.SendMessage(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewSendResponse(out))
}

func (h *Handler) setDraft(w http.ResponseWriter, r *http.Request) {
	var req api.DraftRequest
	if err := api.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondView(w, r)(h.chat.SetDraft(r.Context(), chi.URLParam(r, "id"), req.Text))
}

func (h *Handler) setLanguage(w http.ResponseWriter, r *http.Request) {
	var req api.LanguageRequest
	if err := api.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondView(w, r)(h.chat.SetLanguage(r.Context(), chi.URLParam(r, "id"), req.Language))
}

func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request) {
	var req api.VisibilityRequest
	if err := api.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Open == nil {
		h.fail(w, r, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "open_required"})
		return
	}
	h.respondView(w, r)(h.chat.SetVisibility(r.Context(), chi.URLParam(r, "id"), *req.Open))
}

func (h *Handler) respondView(w http.ResponseWriter, r *http.Request) func(usecase.SessionView, error) {
	return func(view usecase.SessionView, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, api.NewSessionResponse(view))
	}
}

func (h *Handler) quickReply(w http.ResponseWriter, r *http.Request) {
	var req api.QuickReplyRequest
	if err := api.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondAction(w, r)(h.chat.QuickReply(r.Context(), chi.URLParam(r, "id"), req.Label))
}

func (h *Handler) quickAction(w http.ResponseWriter, r *http.Request) {
	h.respondAction(w, r)(h.chat.QuickAction(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "section")))
}

func (h *Handler) respondAction(w http.ResponseWriter, r *http.Request) func(usecase.ActionOutput, error) {
	return func(out usecase.ActionOutput, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, api.NewActionResponse(out))
	}
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	cat, err := h.chat.Catalog(r.URL.Query().Get("language"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewCatalogResponse(cat))
}

func (h *Handler) mortgage(w http.ResponseWriter, r *http.Request) {
	var in calculator.MortgageInput
	if err := api.DecodeJSON(r.Body, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCalculation(w, r)(h.calc.Mortgage(in))
}

func (h *Handler) roi(w http.ResponseWriter, r *http.Request) {
	var in calculator.ROIInput
	if err := api.DecodeJSON(r.Body, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCalculation(w, r)(h.calc.ROI(in))
}

func (h *Handler) respondCalculation(w http.ResponseWriter, r *http.Request) func(usecase.CalculationResult, error) {
	return func(res usecase.CalculationResult, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, api.NewCalculationResponse(res))
	}
}
