package assets

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

// Handler manages asset inventory endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: guard, validator: validator.New()}
}

// MountRoutes registers asset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAssets, rbac.ActionRead))
		r.Get("/", h.list)
		r.Get("/export.csv", h.exportCSV)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAssets, rbac.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAssets, rbac.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceAssets, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

type assetForm struct {
	Tag            string
	Name           string `validate:"required"`
	Category       string
	SerialNumber   string
	Status         string
	AssignedTo     string
	WarrantyExpiry string
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list assets", slog.Any("error", err))
		h.render(w, r, "pages/assets/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/assets/list.html", map[string]any{"Assets": items}, http.StatusOK)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("export assets", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="assets.csv"`)
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	_ = writer.Write([]string{"tag", "name", "category", "serial_number", "status", "assigned_to", "warranty_expiry"})
	for _, a := range items {
		expiry := ""
		if !a.WarrantyExpiry.IsZero() {
			expiry = a.WarrantyExpiry.Format("2006-01-02")
		}
		_ = writer.Write([]string{a.Tag, a.Name, a.Category, a.SerialNumber, a.Status, a.AssignedTo, expiry})
	}
	writer.Flush()
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/assets/form.html", map[string]any{"Form": assetForm{Status: StatusInStock}, "Statuses": Statuses(), "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, asset, errs := h.parseForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/assets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "Errors": errs}, http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Create(r.Context(), sess.User(), asset); err != nil {
		h.logger.Error("create asset", slog.Any("error", err))
		h.render(w, r, "pages/assets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/assets", "success", "Asset created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	asset, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form := assetForm{
		Tag:          asset.Tag,
		Name:         asset.Name,
		Category:     asset.Category,
		SerialNumber: asset.SerialNumber,
		Status:       asset.Status,
		AssignedTo:   asset.AssignedTo,
	}
	if !asset.WarrantyExpiry.IsZero() {
		form.WarrantyExpiry = asset.WarrantyExpiry.Format("2006-01-02")
	}
	h.render(w, r, "pages/assets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "AssetID": asset.ID, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, asset, errs := h.parseForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/assets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "AssetID": id, "Errors": errs}, http.StatusBadRequest)
		return
	}
	asset.ID = id
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Update(r.Context(), sess.User(), asset); err != nil {
		h.logger.Error("update asset", slog.Any("error", err))
		h.render(w, r, "pages/assets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "AssetID": id, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/assets", "success", "Asset updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Delete(r.Context(), sess.User(), id); err != nil {
		h.redirectWithFlash(w, r, "/assets", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/assets", "success", "Asset deleted")
}

func (h *Handler) parseForm(r *http.Request) (assetForm, Asset, formErrors) {
	errs := make(formErrors)
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission"
		return assetForm{}, Asset{}, errs
	}
	form := assetForm{
		Tag:            r.PostFormValue("tag"),
		Name:           r.PostFormValue("name"),
		Category:       r.PostFormValue("category"),
		SerialNumber:   r.PostFormValue("serial_number"),
		Status:         r.PostFormValue("status"),
		AssignedTo:     r.PostFormValue("assigned_to"),
		WarrantyExpiry: r.PostFormValue("warranty_expiry"),
	}
	if err := h.validator.Struct(form); err != nil {
		errs["general"] = "Name is required"
		return form, Asset{}, errs
	}
	asset := Asset{
		Tag:          form.Tag,
		Name:         form.Name,
		Category:     form.Category,
		SerialNumber: form.SerialNumber,
		Status:       form.Status,
		AssignedTo:   form.AssignedTo,
	}
	if form.WarrantyExpiry != "" {
		expiry, err := time.Parse("2006-01-02", form.WarrantyExpiry)
		if err != nil {
			errs["warranty_expiry"] = "Warranty expiry must be YYYY-MM-DD"
			return form, Asset{}, errs
		}
		asset.WarrantyExpiry = expiry
	}
	return form, asset, errs
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
	viewData := view.TemplateData{Title: "Assets", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
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
