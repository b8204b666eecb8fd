package employees

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

// Handler manages employee and department endpoints.
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

// MountRoutes registers employee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceEmployees, rbac.ActionRead))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceEmployees, rbac.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceEmployees, rbac.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
	})
}

// MountDepartmentRoutes registers department routes.
func (h *Handler) MountDepartmentRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceDepartments, rbac.ActionRead))
		r.Get("/", h.listDepartments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceDepartments, rbac.ActionCreate))
		r.Post("/", h.createDepartment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceDepartments, rbac.ActionDelete))
		r.Post("/{id}/delete", h.deleteDepartment)
	})
}

type employeeForm struct {
	Name         string
	Email        string
	DepartmentID string
	Position     string
	IsActive     bool
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.logger.Error("list employees", slog.Any("error", err))
		h.render(w, r, "pages/employees/list.html", "Employees", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/employees/list.html", "Employees", map[string]any{"Employees": items}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	depts, _ := h.service.ListDepartments(r.Context())
	h.render(w, r, "pages/employees/form.html", "Employees", map[string]any{"Form": employeeForm{IsActive: true}, "Departments": depts, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, employee, errs := h.parseForm(r)
	if len(errs) > 0 {
		depts, _ := h.service.ListDepartments(r.Context())
		h.render(w, r, "pages/employees/form.html", "Employees", map[string]any{"Form": form, "Departments": depts, "Errors": errs}, http.StatusBadRequest)
		return
	}
	if _, err := h.service.CreateEmployee(r.Context(), employee); err != nil {
		depts, _ := h.service.ListDepartments(r.Context())
		h.render(w, r, "pages/employees/form.html", "Employees", map[string]any{"Form": form, "Departments": depts, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/employees", "success", "Employee created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	employee, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form := employeeForm{
		Name:         employee.Name,
		Email:        employee.Email,
		DepartmentID: strconv.FormatInt(employee.DepartmentID, 10),
		Position:     employee.Position,
		IsActive:     employee.IsActive,
	}
	depts, _ := h.service.ListDepartments(r.Context())
	h.render(w, r, "pages/employees/form.html", "Employees", map[string]any{"Form": form, "Departments": depts, "EmployeeID": employee.ID, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, employee, errs := h.parseForm(r)
	if len(errs) > 0 {
		depts, _ := h.service.ListDepartments(r.Context())
		h.render(w, r, "pages/employees/form.html", "Employees", map[string]any{"Form": form, "Departments": depts, "EmployeeID": id, "Errors": errs}, http.StatusBadRequest)
		return
	}
	employee.ID = id
	if _, err := h.service.UpdateEmployee(r.Context(), employee); err != nil {
		depts, _ := h.service.ListDepartments(r.Context())
		h.render(w, r, "pages/employees/form.html", "Employees", map[string]any{"Form": form, "Departments": depts, "EmployeeID": id, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/employees", "success", "Employee updated")
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.service.ListDepartments(r.Context())
	if err != nil {
		h.logger.Error("list departments", slog.Any("error", err))
		h.render(w, r, "pages/departments/list.html", "Departments", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/departments/list.html", "Departments", map[string]any{"Departments": depts}, http.StatusOK)
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if _, err := h.service.CreateDepartment(r.Context(), r.PostFormValue("name")); err != nil {
		h.redirectWithFlash(w, r, "/departments", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/departments", "success", "Department created")
}

func (h *Handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), id); err != nil {
		h.redirectWithFlash(w, r, "/departments", "error", "Department not found or still has members")
		return
	}
	h.redirectWithFlash(w, r, "/departments", "success", "Department deleted")
}

func (h *Handler) parseForm(r *http.Request) (employeeForm, Employee, formErrors) {
	errs := make(formErrors)
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission"
		return employeeForm{}, Employee{}, errs
	}
	form := employeeForm{
		Name:         r.PostFormValue("name"),
		Email:        r.PostFormValue("email"),
		DepartmentID: r.PostFormValue("department_id"),
		Position:     r.PostFormValue("position"),
		IsActive:     r.PostFormValue("is_active") != "",
	}
	employee := Employee{
		Name:     form.Name,
		Email:    form.Email,
		Position: form.Position,
		IsActive: form.IsActive,
	}
	if form.DepartmentID != "" {
		deptID, err := strconv.ParseInt(form.DepartmentID, 10, 64)
		if err != nil {
			errs["department_id"] = "Invalid department"
			return form, Employee{}, errs
		}
		employee.DepartmentID = deptID
	}
	return form, employee, errs
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	var userName string
	if sess != nil {
		flash = sess.PopFlash()
		userName = sess.Name()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
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
