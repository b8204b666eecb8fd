package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

// Handler manages role administration endpoints. Role data itself lives
// in the rbac service; this handler is the HTML surface over it.
type Handler struct {
	logger    *slog.Logger
	service   *rbac.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *rbac.Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: guard}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRoles, rbac.ActionRead))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRoles, rbac.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRoles, rbac.ActionUpdate))
		r.Get("/{slug}/edit", h.showEditForm)
		r.Post("/{slug}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceRoles, rbac.ActionDelete))
		r.Post("/{slug}/delete", h.delete)
	})
}

type roleForm struct {
	Slug   string
	Name   string
	Active bool
	// Granted marks resource/action pairs for the matrix checkboxes.
	Granted map[string]bool
}

type formErrors map[string]string

// matrixData bundles the enum axes the grant matrix template iterates.
type matrixData struct {
	Resources []rbac.Resource
	Actions   []rbac.Action
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/roles/list.html", map[string]any{"Roles": items}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	form := roleForm{Active: true, Granted: map[string]bool{}}
	h.render(w, r, "pages/roles/form.html", map[string]any{"Form": form, "Matrix": matrix(), "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, grants, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	if _, err := h.service.CreateRole(r.Context(), form.Slug, form.Name, grants); err != nil {
		h.render(w, r, "pages/roles/form.html", map[string]any{"Form": form, "Matrix": matrix(), "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Role created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form := roleForm{Slug: role.Slug, Name: role.Name, Active: role.IsActive, Granted: grantedSet(role.Grants)}
	h.render(w, r, "pages/roles/form.html", map[string]any{"Form": form, "Matrix": matrix(), "IsSystem": role.IsSystem, "Editing": true, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	form, grants, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	form.Slug = slug
	if _, err := h.service.UpdateRole(r.Context(), slug, form.Name, grants, form.Active); err != nil {
		h.render(w, r, "pages/roles/form.html", map[string]any{"Form": form, "Matrix": matrix(), "Editing": true, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Role updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.service.DeleteRole(r.Context(), slug); err != nil {
		message := shared.UserSafeMessage(err)
		if errors.Is(err, rbac.ErrSystemRole) {
			message = "Built-in roles cannot be deleted"
		}
		h.redirectWithFlash(w, r, "/roles", "error", message)
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Role deleted")
}

// parseForm reads the grant matrix checkboxes. Each checkbox is named
// grant_<resource>_<action>; unchecked pairs simply do not appear in the
// posted form, which matches the whitelist model.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (roleForm, []rbac.Grant, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return roleForm{}, nil, false
	}
	form := roleForm{
		Slug:    r.PostFormValue("slug"),
		Name:    r.PostFormValue("name"),
		Active:  r.PostFormValue("active") != "",
		Granted: map[string]bool{},
	}
	var grants []rbac.Grant
	for _, resource := range rbac.Resources() {
		var actions []rbac.Action
		for _, action := range rbac.Actions() {
			key := "grant_" + string(resource) + "_" + string(action)
			if r.PostFormValue(key) != "" {
				actions = append(actions, action)
				form.Granted[string(resource)+"_"+string(action)] = true
			}
		}
		if len(actions) > 0 {
			grants = append(grants, rbac.Grant{Resource: resource, Actions: actions})
		}
	}
	return form, grants, true
}

func grantedSet(grants []rbac.Grant) map[string]bool {
	set := make(map[string]bool)
	for _, g := range grants {
		for _, a := range g.Actions {
			set[string(g.Resource)+"_"+string(a)] = true
		}
	}
	return set
}

func matrix() matrixData {
	return matrixData{Resources: rbac.Resources(), Actions: rbac.Actions()}
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
	viewData := view.TemplateData{Title: "Roles", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
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
