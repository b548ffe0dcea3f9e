package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.Render(res, "pages/login.html", TemplateData{
		Title:     "Sign in",
		CSRFToken: "tok",
		Data: map[string]any{
			"Form":   struct{ Email string }{Email: "ada@example.com"},
			"Errors": map[string]string{},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Body.String(), "<form")
	assert.Contains(t, res.Body.String(), "ada@example.com")
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))
}
