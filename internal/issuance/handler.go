package issuance

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

// Handler manages asset issuance endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: guard}
}

// MountRoutes registers issuance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceIssuance, rbac.ActionRead))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceIssuance, rbac.ActionCreate))
		r.Get("/new", h.showIssueForm)
		r.Post("/", h.issue)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceIssuance, rbac.ActionUpdate))
		r.Post("/{id}/close", h.close)
	})
}

type issueForm struct {
	AssetTag   string
	EmployeeID string
	Notes      string
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list issuances", slog.Any("error", err))
		h.render(w, r, "pages/issuance/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/issuance/list.html", map[string]any{"Issuances": items}, http.StatusOK)
}

func (h *Handler) showIssueForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/issuance/form.html", map[string]any{"Form": issueForm{}, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := issueForm{
		AssetTag:   r.PostFormValue("asset_tag"),
		EmployeeID: r.PostFormValue("employee_id"),
		Notes:      r.PostFormValue("notes"),
	}
	employeeID, err := strconv.ParseInt(form.EmployeeID, 10, 64)
	if err != nil {
		h.render(w, r, "pages/issuance/form.html", map[string]any{"Form": form, "Errors": formErrors{"employee_id": "Employee is required"}}, http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	rec := Issuance{AssetTag: form.AssetTag, EmployeeID: employeeID, Notes: form.Notes}
	if _, err := h.service.Issue(r.Context(), sess.User(), rec); err != nil {
		h.render(w, r, "pages/issuance/form.html", map[string]any{"Form": form, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/issuance", "success", "Asset issued")
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	status := r.PostFormValue("status")
	if status == "" {
		status = StatusReturned
	}
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Close(r.Context(), sess.User(), id, status); err != nil {
		h.redirectWithFlash(w, r, "/issuance", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/issuance", "success", "Issuance closed")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var userName string
	if sess != nil {
		flash = sess.PopFlash()
		userName = sess.Name()
	}
	viewData := view.TemplateData{Title: "Issuance", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
