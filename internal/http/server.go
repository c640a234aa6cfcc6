// Package http serves the kasir JSON API on net/http.ServeMux.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "kasir/internal/log"
	"kasir/internal/metrics"
	"kasir/internal/middleware/ratelimit"
	"kasir/internal/middleware/security"
	"kasir/internal/middleware/trace"
	"kasir/internal/services"
)

// Services bundles what the handlers call.
type Services struct {
	Ledger        *services.LedgerService
	Transactions  *services.TransactionService
	Checkout      *services.CheckoutService
	Carts         *services.CartRegistry
	Products      *services.ProductService
	Notifications *services.NotificationService
	PushTokens    *services.PushTokenService
	Home          *services.HomeService
}

type Options struct {
	Logger             *applog.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	// Ready backs /readyz; nil always reports ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc      Services
	mux      *http.ServeMux
	limiter  *ratelimit.Limiter
	detector *security.Detector
	metrics  *metrics.Metrics
	ready    func(ctx context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	mux := http.NewServeMux()
	s := &Server{
		svc:      svc,
		mux:      mux,
		detector: security.NewDetector(),
		metrics:  opts.Metrics,
		ready:    opts.Ready,
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
		Exempt:            isOperational,
	})
	s.routes()

	tracer := trace.NewMiddleware(opts.Logger, opts.Metrics, s.detector.ExtractClientIP, s.routeLabel)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:     "rate limit exceeded, please try again later",
			RequestID: trace.GetRequestID(r.Context()),
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(s.detector.Middleware(headers.Middleware(limit(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /api/home", s.handleHome)

	s.mux.HandleFunc("GET /api/cash", s.handleCashLatest)
	s.mux.HandleFunc("GET /api/cash/history", s.handleCashHistory)
	s.mux.HandleFunc("POST /api/cash", s.handlePostCash)

	s.mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	s.mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)

	s.mux.HandleFunc("GET /api/cart", s.handleGetCart)
	s.mux.HandleFunc("DELETE /api/cart", s.handleClearCart)
	s.mux.HandleFunc("POST /api/cart/items", s.handleAddCartItem)
	s.mux.HandleFunc("PATCH /api/cart/items/{productID}", s.handleUpdateCartItem)
	s.mux.HandleFunc("DELETE /api/cart/items/{productID}", s.handleRemoveCartItem)
	s.mux.HandleFunc("POST /api/checkout", s.handleCheckout)

	s.mux.HandleFunc("GET /api/products", s.handleListProducts)
	s.mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	s.mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	s.mux.HandleFunc("PUT /api/products/{id}", s.handleUpdateProduct)
	s.mux.HandleFunc("DELETE /api/products/{id}", s.handleDeleteProduct)

	s.mux.HandleFunc("GET /api/notifications", s.handleListNotifications)
	s.mux.HandleFunc("POST /api/notifications", s.handleCreateNotification)
	s.mux.HandleFunc("POST /api/notifications/read-all", s.handleMarkAllNotificationsRead)
	s.mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkNotificationRead)
	s.mux.HandleFunc("GET /api/notifications/stream", s.handleNotificationStream)

	s.mux.HandleFunc("GET /api/push-tokens", s.handleGetPushToken)
	s.mux.HandleFunc("POST /api/push-tokens", s.handleRegisterPushToken)
}

// routeLabel keeps metric labels to the registered patterns.
func (s *Server) routeLabel(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		if _, path, ok := strings.Cut(pattern, " "); ok {
			return path
		}
		return pattern
	}
	return "unmatched"
}

// isOperational exempts probes, scrapes and long-lived streams from the limiter.
func isOperational(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics", "/api/notifications/stream":
		return true
	}
	return false
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.svc.Home.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, homeView{
		Cash:          newCashEntryView(home.Cash),
		Products:      newProductViews(home.Products),
		Notifications: newNotificationViews(home.Notifications),
		Unread:        home.Unread,
	})
}
