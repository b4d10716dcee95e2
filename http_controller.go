package ats

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// RegisterPageRoutes mounts the application pages: the public home page, the
// protected dashboard, the company settings CRUD, and logout.
func RegisterPageRoutes[T any](app router.Router[T], opts ...PagesControllerOption) {

	controller := NewPagesController(opts...)

	guard := RequireUser(controller.Routes.Home)

	app.
		Get(controller.Routes.Home, controller.Home).
		SetName("home.get")

	app.
		Get(controller.Routes.Dashboard, controller.Dashboard, guard).
		SetName("dashboard.get")

	app.
		Get(controller.Routes.Settings, controller.SettingsShow, guard).
		SetName("settings.get")

	app.
		Post(fmt.Sprintf("%s/companies", controller.Routes.Settings), controller.CompanyCreate, guard).
		SetName("settings.company-create.post")

	app.
		Post(fmt.Sprintf("%s/companies/:id", controller.Routes.Settings), controller.CompanyUpdate, guard).
		SetName("settings.company-update.post")

	app.
		Post(fmt.Sprintf("%s/companies/:id/delete", controller.Routes.Settings), controller.CompanyDelete, guard).
		SetName("settings.company-delete.post")

	app.
		Get(controller.Routes.Logout, controller.Logout).
		SetName("sign-out.get")
}

type PagesControllerRoutes struct {
	Home      string
	Dashboard string
	Settings  string
	Logout    string
}

type PagesControllerViews struct {
	Home      string
	Dashboard string
	Settings  string
}

type PagesController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Transport    SessionTransport
	Routes       *PagesControllerRoutes
	Views        *PagesControllerViews
	ErrorHandler router.ErrorHandler
}

type PagesControllerOption func(*PagesController) *PagesController

func NewPagesController(opts ...PagesControllerOption) *PagesController {
	c := &PagesController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &PagesControllerRoutes{
			Home:      "/",
			Dashboard: "/dashboard",
			Settings:  "/settings",
			Logout:    "/logout",
		},
		Views: &PagesControllerViews{
			Home:      "home",
			Dashboard: "dashboard",
			Settings:  "settings",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in pages controller...")
	}

	if c.Transport == nil {
		panic("Missing SessionTransport in pages controller...")
	}

	return c
}

func WithPagesRepository(repo RepositoryManager) PagesControllerOption {
	return func(c *PagesController) *PagesController {
		c.Repo = repo
		return c
	}
}

func WithPagesTransport(transport SessionTransport) PagesControllerOption {
	return func(c *PagesController) *PagesController {
		c.Transport = transport
		return c
	}
}

func WithPagesLogger(logger Logger) PagesControllerOption {
	return func(c *PagesController) *PagesController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithPagesDebug(debug bool) PagesControllerOption {
	return func(c *PagesController) *PagesController {
		c.Debug = debug
		return c
	}
}

func (a *PagesController) Home(ctx router.Context) error {
	return ctx.Render(a.Views.Home, MergeTemplateData(ctx, router.ViewContext{
		"title": "ATS Home",
	}))
}

func (a *PagesController) Dashboard(ctx router.Context) error {
	user, _ := GetRouterUser(ctx, "")
	return ctx.Render(a.Views.Dashboard, MergeTemplateData(ctx, router.ViewContext{
		"title": "ATS Dashboard",
		"user":  user,
	}))
}

func (a *PagesController) SettingsShow(ctx router.Context) error {
	companies, err := a.Repo.Companies().ListAll(ctx.Context())
	if err != nil {
		a.Logger.Error("settings list companies: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Settings, MergeTemplateData(ctx, router.ViewContext{
		"title":     "Settings",
		"companies": companies,
		"record":    nil,
		"errors":    nil,
	}))
}

// CompanyFormPayload is the company create/update form.
type CompanyFormPayload struct {
	Name              string `form:"company_name" json:"company_name"`
	CNPJ              string `form:"company_cnpj" json:"company_cnpj"`
	AddressCEP        string `form:"address_cep" json:"address_cep"`
	AddressNumber     string `form:"address_number" json:"address_number"`
	AddressAdditional string `form:"address_additional" json:"address_additional"`
	AddressCity       string `form:"address_city" json:"address_city"`
	AddressState      string `form:"address_state" json:"address_state"`
}

// Validate will run validation rules
func (r CompanyFormPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.CNPJ, validation.Required, validation.Match(cnpjPattern)),
		validation.Field(&r.AddressCEP, validation.Required, validation.Match(cepPattern)),
		validation.Field(&r.AddressNumber, validation.Length(0, 20)),
		validation.Field(&r.AddressCity, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.AddressState, validation.Required, validation.Match(statePattern)),
	)
}

// ToModel maps the form onto a Company record.
func (r CompanyFormPayload) ToModel() *Company {
	return &Company{
		Name:              r.Name,
		CNPJ:              r.CNPJ,
		AddressCEP:        r.AddressCEP,
		AddressNumber:     r.AddressNumber,
		AddressAdditional: r.AddressAdditional,
		AddressCity:       r.AddressCity,
		AddressState:      strings.ToUpper(r.AddressState),
	}
}

func (a *PagesController) CompanyCreate(ctx router.Context) error {
	payload := new(CompanyFormPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("company create parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Settings, a.settingsViewData(ctx, payload, map[string]string{
			"form": "Failed to parse form",
		}))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("company create validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Settings, a.settingsViewData(ctx, payload, FormatValidationErrorToMap(err)))
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	if _, err := a.Repo.Companies().CreateCompany(ctx.Context(), payload.ToModel()); err != nil {
		msg := "Error registering company"
		if IsCompanyExists(err) {
			msg = ErrCompanyExists.Message
		} else {
			a.Logger.Error("company create error: ", "error", err)
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": msg,
		}).Render(a.Views.Settings, a.settingsViewData(ctx, payload, map[string]string{
			"company_cnpj": msg,
		}))
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Company registered",
	}).Redirect(a.Routes.Settings, fiber.StatusSeeOther)
}

func (a *PagesController) CompanyUpdate(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Company not found",
		}).Redirect(a.Routes.Settings, fiber.StatusSeeOther)
	}

	payload := new(CompanyFormPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("company update parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Settings, a.settingsViewData(ctx, payload, map[string]string{
			"form": "Failed to parse form",
		}))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("company update validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Settings, a.settingsViewData(ctx, payload, FormatValidationErrorToMap(err)))
	}

	if _, err := a.Repo.Companies().UpdateCompany(ctx.Context(), id, payload.ToModel()); err != nil {
		msg := "Error updating company"
		if IsCompanyExists(err) {
			msg = ErrCompanyExists.Message
		} else {
			a.Logger.Error("company update error: ", "error", err)
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": msg,
		}).Redirect(a.Routes.Settings, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Company updated",
	}).Redirect(a.Routes.Settings, fiber.StatusSeeOther)
}

func (a *PagesController) CompanyDelete(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Company not found",
		}).Redirect(a.Routes.Settings, fiber.StatusSeeOther)
	}

	// Removing an already removed company still lands on the success path.
	if _, err := a.Repo.Companies().DeleteCompany(ctx.Context(), id); err != nil {
		a.Logger.Error("company delete error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error removing company",
		}).Redirect(a.Routes.Settings, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Company removed",
	}).Redirect(a.Routes.Settings, fiber.StatusSeeOther)
}

func (a *PagesController) Logout(ctx router.Context) error {
	if err := a.Transport.Clear(ctx); err != nil {
		a.Logger.Error("logout clear credential: ", "error", err)
	}
	return ctx.Redirect(a.Routes.Home, fiber.StatusTemporaryRedirect)
}

func (a *PagesController) settingsViewData(ctx router.Context, record *CompanyFormPayload, validationErrors map[string]string) router.ViewContext {
	companies, err := a.Repo.Companies().ListAll(ctx.Context())
	if err != nil {
		a.Logger.Error("settings list companies: ", "error", err)
		companies = nil
	}

	return MergeTemplateData(ctx, router.ViewContext{
		"title":      "Settings",
		"companies":  companies,
		"record":     record,
		"validation": validationErrors,
	})
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
		"error": richErr,
	})
}
