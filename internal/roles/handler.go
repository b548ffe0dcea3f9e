// Package roles implements the role management screens: listing, CRUD and
// the per-category permission editor. Persistence belongs to the backend;
// this layer renders state and proxies writes. The whole page group is
// restricted to system administrators, matching the sidebar gating.
package roles

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/backend"
	"github.com/meridian-hq/meridian-portal/internal/catalog"
	"github.com/meridian-hq/meridian-portal/internal/guard"
	"github.com/meridian-hq/meridian-portal/internal/shared"
	"github.com/meridian-hq/meridian-portal/internal/view"
)

// Client is the slice of the backend API the role screens need.
type Client interface {
	ListRoles(ctx context.Context, token string) ([]authz.Role, error)
	GetRole(ctx context.Context, id, token string) (*authz.Role, error)
	CreateRole(ctx context.Context, data backend.CreateRoleData, token string) (*authz.Role, error)
	UpdateRole(ctx context.Context, id string, data backend.UpdateRoleData, token string) (*authz.Role, error)
	UpdateRolePermissions(ctx context.Context, id string, data backend.UpdatePermissionsData, token string) (*authz.Role, error)
	DeleteRole(ctx context.Context, id, token string) error
}

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	client    Client
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     guard.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, client Client, templates *view.Engine, csrf *shared.CSRFManager, g guard.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		client:    client,
		templates: templates,
		csrf:      csrf,
		guard:     g,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Options{RequirePortalAccess: true}))
		r.Use(h.guard.RequireSystemAdmin())
		r.Get("/", h.listRoles)
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createRole)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.updateRole)
		r.Get("/{id}/permissions", h.showPermissions)
		r.Post("/{id}/permissions", h.updatePermissions)
		r.Post("/{id}/delete", h.deleteRole)
	})
}

type roleForm struct {
	Name        string `validate:"required,min=2,max=64"`
	Description string `validate:"max=256"`
	IsActive    bool
}

type formErrors map[string]string

type categoryGroup struct {
	Name        string
	Permissions []catalog.Permission
}

// catalogGroups builds the permission editor's category sections from the
// static catalog.
func catalogGroups() []categoryGroup {
	cats := catalog.Categories()
	groups := make([]categoryGroup, 0, len(cats))
	for _, c := range cats {
		groups = append(groups, categoryGroup{Name: c, Permissions: catalog.ByCategory(c)})
	}
	return groups
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := h.client.ListRoles(r.Context(), h.token(r))
	if err != nil {
		h.render(w, r, "pages/roles/list.html", map[string]any{
			"Errors": formErrors{"general": backendMessage(err, "Failed to fetch roles")},
			"Roles":  []authz.Role{},
			"Query":  query,
		}, http.StatusOK)
		return
	}
	h.render(w, r, "pages/roles/list.html", map[string]any{
		"Roles":  filterRoles(list, query),
		"Query":  query,
		"Errors": formErrors{},
	}, http.StatusOK)
}

// filterRoles keeps roles whose name or description contains query,
// case-insensitively.
func filterRoles(list []authz.Role, query string) []authz.Role {
	if query == "" {
		return list
	}
	needle := strings.ToLower(query)
	out := make([]authz.Role, 0, len(list))
	for _, role := range list {
		if strings.Contains(strings.ToLower(role.Name), needle) ||
			strings.Contains(strings.ToLower(role.Description), needle) {
			out = append(out, role)
		}
	}
	return out
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/roles/form.html", map[string]any{
		"Form":   roleForm{IsActive: true},
		"Errors": formErrors{},
	}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseRoleForm(r)
	if len(errs) == 0 {
		active := form.IsActive
		_, err := h.client.CreateRole(r.Context(), backend.CreateRoleData{
			Name:        form.Name,
			Description: form.Description,
			IsActive:    &active,
		}, h.token(r))
		if err != nil {
			errs["general"] = backendMessage(err, "Failed to create role")
		} else {
			h.redirectWithFlash(w, r, "/roles", "success", "Role created")
			return
		}
	}
	h.render(w, r, "pages/roles/form.html", map[string]any{
		"Form":   form,
		"Errors": errs,
	}, http.StatusBadRequest)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	role, err := h.client.GetRole(r.Context(), chi.URLParam(r, "id"), h.token(r))
	if err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", backendMessage(err, "Failed to fetch role"))
		return
	}
	h.render(w, r, "pages/roles/form.html", map[string]any{
		"Role":   role,
		"Form":   roleForm{Name: role.Name, Description: role.Description, IsActive: role.IsActive},
		"Errors": formErrors{},
	}, http.StatusOK)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, errs := h.parseRoleForm(r)
	if len(errs) == 0 {
		active := form.IsActive
		role, err := h.client.UpdateRole(r.Context(), id, backend.UpdateRoleData{
			Name:        form.Name,
			Description: form.Description,
			IsActive:    &active,
		}, h.token(r))
		if err != nil {
			errs["general"] = backendMessage(err, "Failed to update role")
		} else {
			h.redirectWithFlash(w, r, "/roles", "success", "Role "+role.Name+" updated")
			return
		}
	}
	h.render(w, r, "pages/roles/form.html", map[string]any{
		"Role":   &authz.Role{ID: id, Name: form.Name, Description: form.Description, IsActive: form.IsActive},
		"Form":   form,
		"Errors": errs,
	}, http.StatusBadRequest)
}

func (h *Handler) showPermissions(w http.ResponseWriter, r *http.Request) {
	role, err := h.client.GetRole(r.Context(), chi.URLParam(r, "id"), h.token(r))
	if err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", backendMessage(err, "Failed to fetch role"))
		return
	}
	h.render(w, r, "pages/roles/permissions.html", map[string]any{
		"Role":       role,
		"Categories": catalogGroups(),
		"Errors":     formErrors{},
	}, http.StatusOK)
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	// Keys are forwarded untouched; the backend owns their meaning, and a
	// role may carry keys the catalog does not know.
	perms := r.PostForm["permissions"]
	if perms == nil {
		perms = []string{}
	}

	role, err := h.client.UpdateRolePermissions(r.Context(), id, backend.UpdatePermissionsData{Permissions: perms}, h.token(r))
	if err != nil {
		h.render(w, r, "pages/roles/permissions.html", map[string]any{
			"Role":       &authz.Role{ID: id, Permissions: perms},
			"Categories": catalogGroups(),
			"Errors":     formErrors{"general": backendMessage(err, "Failed to update permissions")},
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Permissions for "+role.Name+" updated")
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.client.DeleteRole(r.Context(), chi.URLParam(r, "id"), h.token(r)); err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", backendMessage(err, "Failed to delete role"))
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Role deleted")
}

func (h *Handler) parseRoleForm(r *http.Request) (roleForm, formErrors) {
	errs := formErrors{}
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission"
		return roleForm{}, errs
	}
	form := roleForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		IsActive:    r.PostFormValue("is_active") == "1",
	}
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = "Please provide a valid " + strings.ToLower(fieldErr.Field())
		}
	}
	return form, errs
}

func (h *Handler) token(r *http.Request) string {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.AccessToken()
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	user := shared.UserFromContext(r.Context())
	viewData := view.TemplateData{
		Title:       "Roles",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if user != nil {
		viewData.UserName = user.Name
		viewData.IsAdmin = authz.UserIsSystemAdmin(user)
	}
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

// backendMessage surfaces the server-provided message where present and a
// generic fallback otherwise.
func backendMessage(err error, fallback string) string {
	if apiErr, ok := err.(*backend.APIError); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, shared.ErrNotFound) {
		return "Role not found"
	}
	return fallback
}
