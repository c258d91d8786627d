package devbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
)

// APIPrefix is the path prefix of all backend routes.
const APIPrefix = "/api"

// Handler serves the backend over HTTP.
type Handler struct {
	backend *Backend
	logger  *logger.Logger
}

// NewHandler creates a new Handler.
func NewHandler(backend *Backend, logger *logger.Logger) *Handler {
	return &Handler{backend: backend, logger: logger}
}

// Router builds the gorilla/mux router with all routes under APIPrefix.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(NewLogging(h.logger).Handle)

	api := r.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/", h.health).Methods(http.MethodGet)
	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/subscriptions/plans", h.plans).Methods(http.MethodGet)
	api.HandleFunc("/checkout/{id}", h.payCheckout).Methods(http.MethodGet, http.MethodPost)

	auth := api.NewRoute().Subrouter()
	auth.Use(NewAuthenticate(h.backend, h.logger).Handle)

	auth.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)

	auth.HandleFunc("/messages", h.listMessages).Methods(http.MethodGet)
	auth.HandleFunc("/messages", h.createMessage).Methods(http.MethodPost)
	auth.HandleFunc("/messages/scheduled", h.listScheduled).Methods(http.MethodGet)
	auth.HandleFunc("/messages/delivered", h.listDelivered).Methods(http.MethodGet)
	auth.HandleFunc("/messages/bulk", h.createBulk).Methods(http.MethodPost)
	auth.HandleFunc("/messages/calendar/{year:[0-9]+}/{month:[0-9]+}", h.calendar).Methods(http.MethodGet)
	auth.HandleFunc("/messages/{id}", h.deleteMessage).Methods(http.MethodDelete)

	auth.HandleFunc("/subscriptions/subscribe", h.subscribe).Methods(http.MethodPost)
	auth.HandleFunc("/subscriptions/status/{id}", h.checkoutStatus).Methods(http.MethodGet)

	auth.HandleFunc("/admin/stats", h.adminStats).Methods(http.MethodGet)
	auth.HandleFunc("/admin/users", h.adminUsers).Methods(http.MethodGet)
	auth.HandleFunc("/admin/users/{id}/role", h.updateRole).Methods(http.MethodPut)
	auth.HandleFunc("/admin/transactions", h.adminTransactions).Methods(http.MethodGet)
	auth.HandleFunc("/admin/payouts", h.adminPayouts).Methods(http.MethodGet)
	auth.HandleFunc("/admin/payout", h.requestPayout).Methods(http.MethodPost)
	auth.HandleFunc("/admin/analytics/export", h.exportAnalytics).Methods(http.MethodGet)
	auth.HandleFunc("/admin/analytics/{report}", h.analytics).Methods(http.MethodGet)
	auth.HandleFunc("/admin/marketing/{resource}", h.marketing).Methods(http.MethodGet)

	auth.HandleFunc("/templates", h.listTemplates).Methods(http.MethodGet)
	auth.HandleFunc("/templates", h.createTemplate).Methods(http.MethodPost)
	auth.HandleFunc("/templates/{id}", h.updateTemplate).Methods(http.MethodPut)
	auth.HandleFunc("/templates/{id}", h.deleteTemplate).Methods(http.MethodDelete)
	auth.HandleFunc("/templates/{id}/use", h.useTemplate).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Dev backend: failed to write response",
			"error", err.Error())
	}
}

func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	if e, ok := AsError(err); ok {
		writeJSON(w, logger, e.Status, map[string]string{"detail": e.Detail})
		return
	}
	logger.Error("Dev backend: request failed",
		"error", err.Error())
	writeJSON(w, logger, http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return newError(http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request body: %v", err))
	}
	return nil
}

func (h *Handler) userID(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Zeitgesteuerte Nachrichten API"})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decode(r, &reg); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.backend.Register(reg)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decode(r, &creds); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.backend.Login(creds)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.backend.Me(h.userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, u)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.backend.Messages(h.userID(r), ""))
}

func (h *Handler) listScheduled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.backend.Messages(h.userID(r), model.StatusScheduled))
}

func (h *Handler) listDelivered(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.backend.Delivered(h.userID(r)))
}

func (h *Handler) createMessage(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMessage
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	msg, err := h.backend.CreateMessage(h.userID(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, msg)
}

func (h *Handler) createBulk(w http.ResponseWriter, r *http.Request) {
	var req model.BulkMessages
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.backend.CreateBulk(h.userID(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.DeleteMessage(h.userID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Message deleted successfully"})
}

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		writeError(w, h.logger, newError(http.StatusBadRequest, "Invalid year"))
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		writeError(w, h.logger, newError(http.StatusBadRequest, "Invalid month"))
		return
	}
	cal, err := h.backend.Calendar(h.userID(r), year, month)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, cal)
}

func (h *Handler) plans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, Plans)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan model.Plan `json:"plan"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := h.backend.Subscribe(h.userID(r), req.Plan)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	writeJSON(w, h.logger, http.StatusOK, model.Checkout{
		CheckoutURL: fmt.Sprintf("%s://%s%s/checkout/%s", scheme, r.Host, APIPrefix, id),
		SessionID:   id,
	})
}

func (h *Handler) checkoutStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.backend.CheckoutStatus(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, st)
}

func (h *Handler) payCheckout(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.PayCheckout(mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"payment_status": model.PaymentPaid})
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	h.aggregate(w, r, h.backend.Stats)
}

func (h *Handler) adminUsers(w http.ResponseWriter, r *http.Request) {
	h.aggregate(w, r, h.backend.Users)
}

func (h *Handler) adminTransactions(w http.ResponseWriter, r *http.Request) {
	h.aggregate(w, r, h.backend.Transactions)
}

func (h *Handler) adminPayouts(w http.ResponseWriter, r *http.Request) {
	h.aggregate(w, r, h.backend.Payouts)
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	report := model.Analytics(mux.Vars(r)["report"])
	h.aggregate(w, r, func(userID string) (model.Aggregate, error) {
		return h.backend.Analytics(userID, report)
	})
}

func (h *Handler) exportAnalytics(w http.ResponseWriter, r *http.Request) {
	format := model.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = model.ExportJSON
	}
	h.aggregate(w, r, func(userID string) (model.Aggregate, error) {
		return h.backend.ExportAnalytics(userID, format)
	})
}

func (h *Handler) marketing(w http.ResponseWriter, r *http.Request) {
	resource := model.Marketing(mux.Vars(r)["resource"])
	h.aggregate(w, r, func(userID string) (model.Aggregate, error) {
		return h.backend.Marketing(userID, resource)
	})
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request, fn func(string) (model.Aggregate, error)) {
	agg, err := fn(h.userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, agg)
}

func (h *Handler) requestPayout(w http.ResponseWriter, r *http.Request) {
	var req model.PayoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.backend.RequestPayout(h.userID(r), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.backend.UpdateRole(h.userID(r), mux.Vars(r)["id"], req.Role); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Role updated"})
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.backend.Templates(h.userID(r)))
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl model.Template
	if err := decode(r, &tpl); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created, err := h.backend.CreateTemplate(h.userID(r), tpl)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, created)
}

func (h *Handler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl model.Template
	if err := decode(r, &tpl); err != nil {
		writeError(w, h.logger, err)
		return
	}
	updated, err := h.backend.UpdateTemplate(h.userID(r), mux.Vars(r)["id"], tpl)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.DeleteTemplate(h.userID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Template deleted"})
}

func (h *Handler) useTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.backend.UseTemplate(h.userID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, tpl)
}
