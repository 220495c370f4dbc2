package app

import (
	"github.com/go-chi/chi/v5"

	"github.com/Gagansidh-u/studio/internal/catalog"
	"github.com/Gagansidh-u/studio/internal/handler/catalog"
	"github.com/Gagansidh-u/studio/internal/handler/middleware"
	"github.com/Gagansidh-u/studio/internal/handler/order"
	"github.com/Gagansidh-u/studio/internal/handler/purchase"
	"github.com/Gagansidh-u/studio/internal/handler/user"
	"github.com/Gagansidh-u/studio/internal/handler/wallet"
	"github.com/Gagansidh-u/studio/internal/handler/ws"
	"github.com/Gagansidh-u/studio/internal/identity"
	"github.com/Gagansidh-u/studio/internal/pricing"
	"github.com/Gagansidh-u/studio/internal/service"
)

func (app *App) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithAuth(app.Config))

	provider := identity.NewStoreProvider(app.Store)
	engine := pricing.NewEngine(app.Config.InrPerUsd)
	items := catalog.New()

	walletService := service.NewWalletService(app.Store, provider, app.Gateway)
	userService := service.NewUserService(provider, walletService, app.Config)
	settlementService := service.NewSettlementService(app.Store, items, engine, app.Gateway)
	orderService := service.NewOrderService(app.Store)

	userHandler := userhandler.New(userService, walletService)
	walletHandler := wallethandler.New(walletService)
	purchaseHandler := purchasehandler.New(settlementService, app.Gateway)
	orderHandler := orderhandler.New(orderService, userService)
	catalogHandler := cataloghandler.New(items)
	wsHandler := wshandler.New(walletService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)

		r.Get("/catalog", catalogHandler.Items)
		r.Get("/catalog/{itemID}", catalogHandler.Item)

		r.Route("/user", func(r chi.Router) {
			r.Post("/password", userHandler.ChangePassword)
			r.Post("/verification", userHandler.ResendVerification)
			r.Delete("/", userHandler.DeleteAccount)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", walletHandler.Wallet)
			r.Get("/stream", wsHandler.Wallet)
			r.Post("/topup", walletHandler.TopUp)
			r.Put("/currency", walletHandler.SetCurrency)
			r.Patch("/profile", walletHandler.UpdateProfile)
			r.Post("/wishlist", walletHandler.AddToWishlist)
			r.Delete("/wishlist", walletHandler.RemoveFromWishlist)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", purchaseHandler.Begin)
			r.Get("/{attemptID}", purchaseHandler.Attempt)
			r.Post("/{attemptID}/confirm", purchaseHandler.Confirm)
		})

		r.Post("/payments/{checkoutID}", purchaseHandler.Payment)

		r.Get("/orders", orderHandler.Orders)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", orderHandler.AllOrders)
			r.Post("/orders/{orderID}/status", orderHandler.AdvanceStatus)
		})
	})

	return r
}
