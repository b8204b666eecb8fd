package tickets

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

// Handler manages support ticket endpoints.
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

// MountRoutes registers ticket routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceTickets, rbac.ActionRead))
		r.Get("/", h.list)
		r.Get("/export.csv", h.exportCSV)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceTickets, rbac.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceTickets, rbac.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceTickets, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

type ticketForm struct {
	Subject    string
	Body       string
	Status     string
	Priority   string
	AssignedTo string
	AssetTag   string
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list tickets", slog.Any("error", err))
		h.render(w, r, "pages/tickets/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/tickets/list.html", map[string]any{"Tickets": items}, http.StatusOK)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("export tickets", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tickets.csv"`)
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	_ = writer.Write([]string{"id", "subject", "status", "priority", "requester", "assigned_to", "asset_tag", "created_at"})
	for _, t := range items {
		_ = writer.Write([]string{
			strconv.FormatInt(t.ID, 10), t.Subject, t.Status, t.Priority,
			t.Requester, t.AssignedTo, t.AssetTag, t.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	writer.Flush()
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ticket, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, "pages/tickets/show.html", map[string]any{"Ticket": ticket}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/tickets/form.html", map[string]any{"Form": ticketForm{Priority: PriorityMedium}, "Statuses": Statuses(), "Priorities": Priorities(), "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := h.formFromRequest(r)
	ticket := Ticket{
		Subject:    form.Subject,
		Body:       form.Body,
		Priority:   form.Priority,
		Requester:  sess.User(),
		AssignedTo: form.AssignedTo,
		AssetTag:   form.AssetTag,
	}
	if _, err := h.service.Create(r.Context(), sess.User(), ticket); err != nil {
		h.render(w, r, "pages/tickets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "Priorities": Priorities(), "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/tickets", "success", "Ticket created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ticket, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form := ticketForm{
		Subject:    ticket.Subject,
		Body:       ticket.Body,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		AssignedTo: ticket.AssignedTo,
		AssetTag:   ticket.AssetTag,
	}
	h.render(w, r, "pages/tickets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "Priorities": Priorities(), "TicketID": ticket.ID, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := h.formFromRequest(r)
	ticket := Ticket{
		ID:         id,
		Subject:    form.Subject,
		Body:       form.Body,
		Status:     form.Status,
		Priority:   form.Priority,
		AssignedTo: form.AssignedTo,
		AssetTag:   form.AssetTag,
	}
	if _, err := h.service.Update(r.Context(), sess.User(), ticket); err != nil {
		h.render(w, r, "pages/tickets/form.html", map[string]any{"Form": form, "Statuses": Statuses(), "Priorities": Priorities(), "TicketID": id, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/tickets", "success", "Ticket updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Delete(r.Context(), sess.User(), id); err != nil {
		h.redirectWithFlash(w, r, "/tickets", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/tickets", "success", "Ticket deleted")
}

func (h *Handler) formFromRequest(r *http.Request) ticketForm {
	return ticketForm{
		Subject:    r.PostFormValue("subject"),
		Body:       r.PostFormValue("body"),
		Status:     r.PostFormValue("status"),
		Priority:   r.PostFormValue("priority"),
		AssignedTo: r.PostFormValue("assigned_to"),
		AssetTag:   r.PostFormValue("asset_tag"),
	}
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
	viewData := view.TemplateData{Title: "Tickets", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
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
