package routes

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gusesba/renova-web/internal/app"
	mymw "github.com/gusesba/renova-web/internal/middleware"
)

func SetupRoutes(app *app.Application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mymw.AddSecurityHeaders)
	r.Use(mymw.CSRFProtection)
	r.Use(mymw.Logging(app.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", "HX-Request", "HX-Target", "HX-Current-URL", "HX-Trigger"},
		ExposedHeaders:   []string{"HX-Trigger", "HX-Redirect"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httprate.Limit(
		app.Config.RateLimit,
		1*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	))

	web := app.WebHandler

	r.Get("/healthz", web.HandleHealth)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/main", http.StatusSeeOther)
	})

	r.Get("/auth", web.HandleShowLogin)
	r.With(httprate.Limit(
		app.Config.LoginRateLimit,
		1*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)).Post("/auth", web.HandleLogin)
	r.Post("/logout", web.HandleLogout)

	r.Route("/main", func(r chi.Router) {
		r.Use(app.Middleware.RequireToken)
		r.Use(app.Middleware.AttachSession)

		r.Get("/", web.HandleHome)
		r.Get("/clientes", web.HandleTablePage("clients"))
		r.Post("/clientes", web.HandleCreateClient)
		r.Get("/produtos", web.HandleTablePage("products"))
		r.Post("/produtos", web.HandleCreateProduct)
		r.Get("/fora", web.HandleTablePage("products-sold"))
		r.Get("/vendas", web.HandleTablePage("sells"))
		r.Get("/doacoes", web.HandleTablePage("donations"))
		r.Get("/devolucoes", web.HandleTablePage("returns"))

		r.Get("/config", web.HandleConfigPage)
		r.Post("/config/{kind}", web.HandleCreateConfigItem)

		r.Route("/venda", func(r chi.Router) {
			r.Get("/", web.HandleSalePage)
			r.Post("/items", web.HandleAddSaleItem)
			r.Post("/items/{id}/remove", web.HandleRemoveSaleItem)
			r.Post("/discount", web.HandleSaleDiscount)
			r.Post("/checkout", web.HandleCheckout)
			r.Get("/recibo", web.HandleReceipt)
		})

		r.Route("/grids/{slug}", func(r chi.Router) {
			r.Get("/", web.HandleGridView)
			r.Get("/export", web.HandleGridExport)
			r.Post("/sort", web.HandleGridSort())
			r.Post("/filter", web.HandleGridFilter())
			r.Post("/date", web.HandleGridDateFilter())
			r.Post("/page", web.HandleGridPage())
			r.Post("/pagesize", web.HandleGridPageSize())
			r.Post("/move", web.HandleGridMoveColumn())
			r.Post("/remove", web.HandleGridRemoveColumn())
			r.Post("/add", web.HandleGridAddColumn())
			r.Post("/select", web.HandleGridSelect())
			r.Post("/select-all", web.HandleGridSelectAll())
			r.Post("/expand", web.HandleGridExpand())
			r.Post("/refetch", web.HandleGridRefetch())
			r.Post("/delete", web.HandleGridDelete)
		})
	})

	return r
}
