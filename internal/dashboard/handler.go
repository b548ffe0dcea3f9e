// Package dashboard renders the landing page of statistic cards.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/guard"
	"github.com/meridian-hq/meridian-portal/internal/shared"
	"github.com/meridian-hq/meridian-portal/internal/view"
)

// Client is the slice of the backend API the dashboard needs.
type Client interface {
	Health(ctx context.Context) error
	ListRoles(ctx context.Context, token string) ([]authz.Role, error)
}

// StatCard is a single dashboard figure.
type StatCard struct {
	Title         string
	Value         string
	Variant       string
	Trend         string
	TrendLabel    string
	TrendPositive bool
}

// staticCards are the portal's headline figures.
var staticCards = []StatCard{
	{Title: "Total Revenue", Value: "$45,231", Variant: "primary", Trend: "↑ 20.1%", TrendLabel: "vs last month", TrendPositive: true},
	{Title: "Total Orders", Value: "1,429", Variant: "secondary", Trend: "↑ 15.3%", TrendLabel: "vs last month", TrendPositive: true},
	{Title: "Active Customers", Value: "892", Variant: "tertiary", Trend: "↑ 12.5%", TrendLabel: "vs last month", TrendPositive: true},
	{Title: "Pending Orders", Value: "48", Variant: "warning", Trend: "Needs attention", TrendPositive: false},
	{Title: "Avg Order Value", Value: "$31.65", Variant: "info"},
	{Title: "Conversion Rate", Value: "3.24%", Variant: "success"},
	{Title: "Total Products", Value: "2,456", Variant: "primary"},
}

// Handler renders the dashboard.
type Handler struct {
	logger    *slog.Logger
	client    Client
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     guard.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, client Client, templates *view.Engine, csrf *shared.CSRFManager, g guard.Middleware) *Handler {
	return &Handler{logger: logger, client: client, templates: templates, csrf: csrf, guard: g}
}

// MountRoutes registers the dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Options{RequirePortalAccess: true}))
		r.Get("/", h.showDashboard)
	})
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user := shared.UserFromContext(r.Context())

	roleName := "N/A"
	isAdmin := false
	if user != nil {
		if role, ok := user.Role.Resolved(); ok {
			roleName = role.Name
			isAdmin = authz.IsSystemAdmin(role.Permissions)
		}
	}

	// Probe the backend alongside the role count; neither failure blocks
	// rendering.
	probeCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	healthy := false
	cards := make([]StatCard, len(staticCards))
	copy(cards, staticCards)

	g, gctx := errgroup.WithContext(probeCtx)
	g.Go(func() error {
		healthy = h.client.Health(gctx) == nil
		return nil
	})
	if isAdmin && sess != nil {
		g.Go(func() error {
			list, err := h.client.ListRoles(gctx, sess.AccessToken())
			if err != nil {
				h.logger.Warn("dashboard roles probe", slog.Any("error", err))
				return nil
			}
			cards = append(cards, StatCard{
				Title:   "Defined Roles",
				Value:   strconv.Itoa(len(list)),
				Variant: "tertiary",
			})
			return nil
		})
	}
	_ = g.Wait()

	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}

	userName := ""
	if user != nil {
		userName = user.Name
	}
	viewData := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		UserName:    userName,
		IsAdmin:     isAdmin,
		Data: map[string]any{
			"UserName":       userName,
			"RoleName":       roleName,
			"Cards":          cards,
			"BackendHealthy": healthy,
		},
	}
	if err := h.templates.Render(w, "pages/home.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}
