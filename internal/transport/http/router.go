package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"socialgraph/internal/handler"
	"socialgraph/internal/httputil"
	authmw "socialgraph/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	FollowHandler       *handler.FollowHandler
	ConversationHandler *handler.ConversationHandler
	NotificationHandler *handler.NotificationHandler
	UserHandler         *handler.UserHandler
	WS                  http.HandlerFunc
	RateLimiter         *authmw.IPRateLimiter
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	limited := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimiter != nil {
		limited = cfg.RateLimiter.Middleware
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Real-time channel; the handshake authenticates itself.
	r.With(limited).Get("/ws", cfg.WS)

	// Public user endpoints with optional authentication
	r.Route("/users/{username}", func(r chi.Router) {
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/followers", cfg.FollowHandler.GetFollowers)
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/following", cfg.FollowHandler.GetFollowing)
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/visibility", cfg.UserHandler.Visibility)
		r.With(authmw.AuthMiddleware(cfg.JWTSecret)).Get("/relationship", cfg.UserHandler.Relationship)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.With(limited).Post("/follows/{username}", cfg.FollowHandler.Follow)
		r.With(limited).Delete("/follows/{username}", cfg.FollowHandler.Unfollow)

		r.Route("/follow-requests", func(r chi.Router) {
			r.Get("/", cfg.FollowHandler.ListRequests)
			r.With(limited).Post("/approve", cfg.FollowHandler.Approve)
			r.With(limited).Post("/deny", cfg.FollowHandler.Deny)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", cfg.ConversationHandler.List)
			r.With(limited).Post("/", cfg.ConversationHandler.Create)
			r.Get("/{id}/messages", cfg.ConversationHandler.ListMessages)
			r.With(limited).Post("/{id}/messages", cfg.ConversationHandler.SendMessage)
			r.Patch("/{id}/read", cfg.ConversationHandler.MarkRead)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.UnreadCount)
			r.Post("/read", cfg.NotificationHandler.MarkAllRead)
		})
	})

	return r
}
