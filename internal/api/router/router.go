package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bookbotclinic/bookbot/internal/bookings"
	"github.com/bookbotclinic/bookbot/internal/dialogue"
	httpmiddleware "github.com/bookbotclinic/bookbot/internal/http/middleware"
	"github.com/bookbotclinic/bookbot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	DialogueHandler *dialogue.Handler
	MetricsHandler  http.Handler

	// WebChatHandler serves the websocket chat endpoint (optional).
	WebChatHandler http.Handler

	// ArchiveHandler serves the booking archive (optional, needs Postgres).
	ArchiveHandler *bookings.Handler

	CORSAllowedOrigins []string

	// Per-IP chat rate limit. Zero disables limiting.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	d := cfg.DialogueHandler

	r.Get("/health", d.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(chat chi.Router) {
		if cfg.ChatRatePerSecond > 0 {
			chat.Use(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatBurst))
		}
		chat.Post("/chat", d.Chat)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", d.ListBookings)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", d.GetBooking)
			r.Patch("/", d.UpdateBooking)
			r.Delete("/", d.DeleteBooking)
		})
	})

	r.Get("/clinic/info", d.ClinicInfo)
	r.Post("/history/clear", d.ClearHistory)

	if cfg.ArchiveHandler != nil {
		r.Get("/archive/bookings", cfg.ArchiveHandler.ListBySession)
	}

	if cfg.WebChatHandler != nil {
		r.Handle("/webchat", cfg.WebChatHandler)
	}

	return r
}
