package bankd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fakecombank/teller/pkg/logger"
)

// RouterConfig holds router configuration
type RouterConfig struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	Handlers       *Handlers
	JWT            *JWTService
}

// NewRouter wires the wallet service HTTP surface
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(RateLimit())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	r.Post("/auth/signup", cfg.Handlers.SignUp)
	r.Post("/auth/signin", cfg.Handlers.SignIn)

	r.Route("/coins", func(r chi.Router) {
		r.Get("/trending", cfg.Handlers.GetTrendingCoins)
		r.Get("/top50", cfg.Handlers.GetTopCoins)
		r.Get("/search", cfg.Handlers.SearchCoins)
		r.Get("/details/{id}", cfg.Handlers.GetCoinDetails)
		r.Get("/{id}/chart", cfg.Handlers.GetMarketChart)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWT))

		r.Get("/api/wallet", cfg.Handlers.GetWallet)
		r.Put("/api/wallet/deposit", cfg.Handlers.ConfirmDeposit)
		r.Put("/api/wallet/{id}/transfer", cfg.Handlers.Transfer)
		r.Post("/api/payment/{method}/amount/{amount}", cfg.Handlers.CreatePayment)
		r.Get("/api/transactions", cfg.Handlers.ListTransactions)
		r.Get("/api/users/profile", cfg.Handlers.GetProfile)
		r.Put("/api/users/profile", cfg.Handlers.UpdateProfile)
	})

	return r
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
