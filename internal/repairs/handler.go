package repairs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

// Handler manages repair record endpoints.
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

// MountRoutes registers repair routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRepairs, rbac.ActionRead))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRepairs, rbac.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRepairs, rbac.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRepairs, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

type repairForm struct {
	AssetTag string
	Defect   string
	Vendor   string
	Cost     string
	Status   string
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list repairs", slog.Any("error", err))
		h.render(w, r, "pages/repairs/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/repairs/list.html", map[string]any{"Repairs": items}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/repairs/form.html", map[string]any{"Form": repairForm{Status: StatusReported}, "Statuses": Statuses(), "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, repair, errs := h.parseForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/repairs/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "Errors": errs}, http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Create(r.Context(), sess.User(), repair); err != nil {
		h.render(w, r, "pages/repairs/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/repairs", "success", "Repair recorded")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	repair, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form := repairForm{
		AssetTag: repair.AssetTag,
		Defect:   repair.Defect,
		Vendor:   repair.Vendor,
		Cost:     strconv.FormatFloat(float64(repair.CostCents)/100, 'f', 2, 64),
		Status:   repair.Status,
	}
	h.render(w, r, "pages/repairs/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "RepairID": repair.ID, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, repair, errs := h.parseForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/repairs/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "RepairID": id, "Errors": errs}, http.StatusBadRequest)
		return
	}
	repair.ID = id
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Update(r.Context(), sess.User(), repair); err != nil {
		h.render(w, r, "pages/repairs/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "RepairID": id, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/repairs", "success", "Repair updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Delete(r.Context(), sess.User(), id); err != nil {
		h.redirectWithFlash(w, r, "/repairs", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/repairs", "success", "Repair deleted")
}

func (h *Handler) parseForm(r *http.Request) (repairForm, Repair, formErrors) {
	errs := make(formErrors)
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission"
		return repairForm{}, Repair{}, errs
	}
	form := repairForm{
		AssetTag: r.PostFormValue("asset_tag"),
		Defect:   r.PostFormValue("defect"),
		Vendor:   r.PostFormValue("vendor"),
		Cost:     r.PostFormValue("cost"),
		Status:   r.PostFormValue("status"),
	}
	repair := Repair{
		AssetTag: form.AssetTag,
		Defect:   form.Defect,
		Vendor:   form.Vendor,
		Status:   form.Status,
	}
	if form.Cost != "" {
		cost, err := strconv.ParseFloat(form.Cost, 64)
		if err != nil || cost < 0 {
			errs["cost"] = "Cost must be a non-negative number"
			return form, Repair{}, errs
		}
		repair.CostCents = int64(cost * 100)
	}
	return form, repair, errs
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
	viewData := view.TemplateData{Title: "Repairs", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
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
