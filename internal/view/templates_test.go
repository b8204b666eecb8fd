package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

var pageNames = []string{
	"pages/landing.html",
	"pages/home.html",
	"pages/login.html",
	"pages/assets/list.html",
	"pages/assets/form.html",
	"pages/tickets/list.html",
	"pages/tickets/show.html",
	"pages/tickets/form.html",
	"pages/repairs/list.html",
	"pages/repairs/form.html",
	"pages/issuance/list.html",
	"pages/issuance/form.html",
	"pages/employees/list.html",
	"pages/employees/form.html",
	"pages/departments/list.html",
	"pages/kb/list.html",
	"pages/kb/show.html",
	"pages/kb/form.html",
	"pages/reports/dashboard.html",
	"pages/users/list.html",
	"pages/users/form.html",
	"pages/roles/list.html",
	"pages/roles/form.html",
}

func TestNewEngineParsesAllPages(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	for _, name := range pageNames {
		require.NotNil(t, engine.templates.Lookup(name), "missing template %s", name)
	}
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/login.html", TemplateData{
		Title:     "Sign in",
		CSRFToken: "tok-123",
		Data: map[string]any{
			"Form":     map[string]any{"Login": "dana"},
			"Errors":   map[string]string{"login": "Invalid username or password."},
			"ReturnTo": "/tickets",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.Contains(t, body, `value="dana"`)
	require.Contains(t, body, `value="tok-123"`)
	require.Contains(t, body, "Invalid username or password.")
}

func TestRenderEmptyTicketList(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/tickets/list.html", TemplateData{
		Title:       "Tickets",
		CurrentPath: "/tickets",
		UserName:    "Dana",
		Data:        map[string]any{"Tickets": nil},
	})
	require.NoError(t, err)
	require.Contains(t, rec.Body.String(), "No tickets yet.")
}

func TestRenderNilEngineFails(t *testing.T) {
	var engine *Engine
	require.Error(t, engine.Render(httptest.NewRecorder(), "pages/home.html", TemplateData{}))
}
