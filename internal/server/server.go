// Package server exposes a game loop over HTTP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"coinforge/internal/loop"
)

// Server routes HTTP requests to the game loop.
type Server struct {
	loop   *loop.Loop
	logger *zap.Logger
}

func New(l *loop.Loop, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{loop: l, logger: logger}
}

// Router builds the chi router. An empty origins list allows any origin.
func (s *Server) Router(origins []string) chi.Router {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))
	r.Use(s.logRequests)

	r.Get("/state", s.State)
	r.Get("/probabilities", s.Probabilities)
	r.Route("/prices", func(rr chi.Router) {
		rr.Get("/", s.Prices)
		rr.Get("/{level}/history", s.PriceHistory)
	})

	r.Post("/deal", s.Deal)
	r.Post("/pickup/{slot}", s.PickUp)
	r.Post("/drop", s.Drop)
	r.Post("/cancel-drag", s.CancelDrag)
	r.Post("/sell", s.Sell)
	r.Post("/quick-sell", s.QuickSell)
	r.Post("/slots", s.BuySlot)
	r.Post("/coins/{level}", s.BuyCoin)
	r.Post("/upgrades/{kind}", s.BuyUpgrade)
	r.Post("/worker", s.SetWorker)
	r.Post("/prestige", s.Prestige)
	r.Post("/restart", s.Restart)
	r.Post("/save", s.Save)
	r.Post("/load", s.Load)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
		)
	})
}
