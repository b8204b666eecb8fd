package kb

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

// Handler manages knowledgebase endpoints.
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

// MountRoutes registers knowledgebase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceKnowledgeBase, rbac.ActionRead))
		r.Get("/", h.list)
		r.Get("/view/{slug}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceKnowledgeBase, rbac.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceKnowledgeBase, rbac.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceKnowledgeBase, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

type articleForm struct {
	Title     string
	Body      string
	Tags      string
	Published bool
}

type formErrors map[string]string

// canEdit reports whether the current session role may update articles.
// Editors see drafts in listings; everyone else sees published entries only.
func (h *Handler) canEdit(r *http.Request) bool {
	sess := shared.SessionFromContext(r.Context())
	if !sess.IsAuthenticated() {
		return false
	}
	return h.rbac.Service.HasPermission(r.Context(), sess.Role(), rbac.ResourceKnowledgeBase, rbac.ActionUpdate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	editor := h.canEdit(r)
	items, err := h.service.List(r.Context(), !editor)
	if err != nil {
		h.logger.Error("list articles", slog.Any("error", err))
		h.render(w, r, "pages/kb/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/kb/list.html", map[string]any{"Articles": items, "CanEdit": editor}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	article, err := h.service.GetBySlug(r.Context(), slug, h.canEdit(r))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, "pages/kb/show.html", map[string]any{"Article": article, "CanEdit": h.canEdit(r)}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/kb/form.html", map[string]any{"Form": articleForm{}, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, article, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Create(r.Context(), sess.User(), article); err != nil {
		h.render(w, r, "pages/kb/form.html", map[string]any{"Form": form, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/kb", "success", "Article created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	article, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form := articleForm{
		Title:     article.Title,
		Body:      article.Body,
		Tags:      strings.Join(article.Tags, ", "),
		Published: article.Published,
	}
	h.render(w, r, "pages/kb/form.html", map[string]any{"Form": form, "ArticleID": article.ID, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, article, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	article.ID = id
	sess := shared.SessionFromContext(r.Context())
	if _, err := h.service.Update(r.Context(), sess.User(), article); err != nil {
		h.render(w, r, "pages/kb/form.html", map[string]any{"Form": form, "ArticleID": id, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/kb", "success", "Article updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Delete(r.Context(), sess.User(), id); err != nil {
		h.redirectWithFlash(w, r, "/kb", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/kb", "success", "Article deleted")
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (articleForm, Article, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return articleForm{}, Article{}, false
	}
	form := articleForm{
		Title:     r.PostFormValue("title"),
		Body:      r.PostFormValue("body"),
		Tags:      r.PostFormValue("tags"),
		Published: r.PostFormValue("published") != "",
	}
	article := Article{
		Title:     form.Title,
		Body:      form.Body,
		Tags:      ParseTags(form.Tags),
		Published: form.Published,
	}
	return form, article, true
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
	viewData := view.TemplateData{Title: "Knowledgebase", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
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
