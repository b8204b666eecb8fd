package reports

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/view"
)

var titleCaser = cases.Title(language.English)

// Handler manages reporting endpoints.
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

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceReports, rbac.ActionRead))
		r.Get("/", h.dashboard)
		r.Get("/export", h.exportCSV)
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("build report summary", slog.Any("error", err))
		h.render(w, r, "pages/reports/dashboard.html", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/reports/dashboard.html", map[string]any{"Summary": summary}, http.StatusOK)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("build report summary", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="opsdesk-report.csv"`)
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	_ = cw.Write([]string{"Section", "Metric", "Count"})
	writeCounts(cw, "Assets", summary.AssetsByStatus)
	writeCounts(cw, "Tickets", summary.TicketsByStatus)
	_ = cw.Write([]string{"Repairs", "Open Repairs", strconv.FormatInt(summary.OpenRepairs, 10)})
	_ = cw.Write([]string{"Issuance", "Active Issuances", strconv.FormatInt(summary.ActiveIssuances, 10)})
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("write report csv", slog.Any("error", err))
	}
}

func writeCounts(cw *csv.Writer, section string, counts map[string]int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_ = cw.Write([]string{section, metricLabel(k), strconv.FormatInt(counts[k], 10)})
	}
}

// metricLabel turns a status slug such as "in_repair" into "In Repair".
func metricLabel(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "_", " "))
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
	viewData := view.TemplateData{Title: "Reports", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, UserName: userName, Data: data}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
