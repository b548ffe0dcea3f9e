// Package settings implements the application settings screen. Values are
// held per browser session; viewing requires the settings read permission
// and saving requires the update permission, which the form reflects by
// disabling its fields for read-only users.
package settings

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/guard"
	"github.com/meridian-hq/meridian-portal/internal/shared"
	"github.com/meridian-hq/meridian-portal/internal/view"
)

// Currency is a selectable currency option.
type Currency struct {
	Code   string
	Label  string
	Symbol string
}

// Currencies lists the supported application currencies.
var Currencies = []Currency{
	{Code: "USD", Label: "US Dollar", Symbol: "$"},
	{Code: "EUR", Label: "Euro", Symbol: "€"},
	{Code: "GBP", Label: "British Pound", Symbol: "£"},
	{Code: "JPY", Label: "Japanese Yen", Symbol: "¥"},
	{Code: "AUD", Label: "Australian Dollar", Symbol: "A$"},
	{Code: "CAD", Label: "Canadian Dollar", Symbol: "C$"},
	{Code: "CHF", Label: "Swiss Franc", Symbol: "CHF"},
	{Code: "CNY", Label: "Chinese Yuan", Symbol: "¥"},
	{Code: "INR", Label: "Indian Rupee", Symbol: "₹"},
	{Code: "BDT", Label: "Bangladeshi Taka", Symbol: "৳"},
}

const (
	keyMinVersion     = "settings.app_min_version"
	keyCurrentVersion = "settings.app_current_version"
	keyCurrency       = "settings.currency"

	defaultMinVersion     = "1.0.0"
	defaultCurrentVersion = "1.2.5"
	defaultCurrency       = "USD"
)

// Handler manages the settings endpoints.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     guard.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, g guard.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		templates: templates,
		csrf:      csrf,
		guard:     g,
		validator: validator.New(),
	}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Protect(guard.Options{RequirePortalAccess: true}))
		r.With(h.guard.RequireAny("system.settings.read", "system.settings.update")).
			Get("/", h.showSettings)
		r.With(h.guard.RequireAll("system.settings.update")).
			Post("/", h.saveSettings)
	})
}

type settingsForm struct {
	AppMinVersion     string `validate:"required,max=32"`
	AppCurrentVersion string `validate:"required,max=32"`
	Currency          string `validate:"required"`
}

type formErrors map[string]string

func (h *Handler) showSettings(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.currentForm(r), formErrors{}, http.StatusOK)
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseForm(r)
	if len(errs) > 0 {
		h.render(w, r, form, errs, http.StatusBadRequest)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.Set(keyMinVersion, form.AppMinVersion)
		sess.Set(keyCurrentVersion, form.AppCurrentVersion)
		sess.Set(keyCurrency, form.Currency)
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Settings saved successfully!"})
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// currentForm reads the stored values, falling back to the shipped defaults.
func (h *Handler) currentForm(r *http.Request) settingsForm {
	form := settingsForm{
		AppMinVersion:     defaultMinVersion,
		AppCurrentVersion: defaultCurrentVersion,
		Currency:          defaultCurrency,
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return form
	}
	if v := sess.Get(keyMinVersion); v != "" {
		form.AppMinVersion = v
	}
	if v := sess.Get(keyCurrentVersion); v != "" {
		form.AppCurrentVersion = v
	}
	if v := sess.Get(keyCurrency); v != "" {
		form.Currency = v
	}
	return form
}

func (h *Handler) parseForm(r *http.Request) (settingsForm, formErrors) {
	errs := formErrors{}
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission"
		return settingsForm{}, errs
	}
	form := settingsForm{
		AppMinVersion:     strings.TrimSpace(r.PostFormValue("app_min_version")),
		AppCurrentVersion: strings.TrimSpace(r.PostFormValue("app_current_version")),
		Currency:          strings.TrimSpace(r.PostFormValue("currency")),
	}
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = "Please provide a valid value"
		}
	}
	if form.Currency != "" && !validCurrency(form.Currency) {
		errs["Currency"] = "Unsupported currency"
	}
	return form, errs
}

func validCurrency(code string) bool {
	for _, c := range Currencies {
		if c.Code == code {
			return true
		}
	}
	return false
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form settingsForm, errs formErrors, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	user := shared.UserFromContext(r.Context())

	viewData := view.TemplateData{
		Title:       "Settings",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Form":       form,
			"Currencies": Currencies,
			"Errors":     errs,
			"CanEdit":    authz.HasPermission(user, "system.settings.update"),
		},
	}
	if user != nil {
		viewData.UserName = user.Name
		viewData.IsAdmin = authz.UserIsSystemAdmin(user)
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/settings.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
