package httppresentation

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	appcatalog "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application/identity"
	apporder "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-storefront/app/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/infrastructure/ratelimit"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxJSONBody          = 1 << 20
	maxMultipartBody     = 32 << 20
)

// Authenticator verifies bearer access tokens.
type Authenticator interface {
	ValidateAccessToken(token string) (*user.Principal, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.RateLimitResult, error)
}

// Services are the use cases the routes dispatch to.
type Services struct {
	Categories *appcatalog.CategoryService
	Products   *appcatalog.ProductService
	Identity   *identity.Service

	CreateOrder *apporder.CreateOrderUseCase
	ListOrders  *apporder.ListOrdersUseCase
	GetOrder    *apporder.GetOrderUseCase

	InitiatePayment *apppayment.InitiatePaymentUseCase
	HandleCallback  *apppayment.HandleCallbackUseCase
	GetPayment      *apppayment.GetPaymentUseCase
}

type Options struct {
	Auth Authenticator
	// Limiter is optional; without it payment initiation is not throttled.
	Limiter       RateLimiter
	PayRateLimit  int
	PayRateWindow time.Duration

	AllowedOrigins []string
	// MediaURL maps a stored media path to its public URL.
	MediaURL func(path string) string
	// MediaRoot and MediaPrefix serve uploads when ServeMedia is set.
	ServeMedia  bool
	MediaRoot   string
	MediaPrefix string

	Metrics   http.Handler
	Health    func(ctx context.Context) error
	RequestID func() string
}

type Server struct {
	svc  Services
	opts Options
	log  observability.Logger

	httpRequests observability.Counter
	httpLatency  observability.Histogram
	rateLimited  observability.Counter
}

func NewServer(svc Services, opts Options, tel observability.Observability) *Server {
	if tel == nil {
		tel = observability.Nop()
	}
	if opts.MediaURL == nil {
		opts.MediaURL = func(p string) string { return p }
	}
	if opts.MediaPrefix == "" {
		opts.MediaPrefix = "/media/"
	}
	m := tel.Metrics()
	return &Server{
		svc:          svc,
		opts:         opts,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		httpRequests: m.Counter(observability.MHTTPRequests),
		httpLatency:  m.Histogram(observability.MHTTPRequestDuration),
		rateLimited:  m.Counter(observability.MRateLimited),
	}
}

// Router wires every route. Each route runs
// Trace → ObservabilityMiddleware → Access log → HTTP metrics → auth → handler.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /{$}", http.HandlerFunc(s.handleRoot))
	s.handle(mux, "GET /health", http.HandlerFunc(s.handleHealth))
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}
	if s.opts.ServeMedia && s.opts.MediaRoot != "" {
		prefix := mediaPathPrefix(s.opts.MediaPrefix)
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(s.opts.MediaRoot))))
	}

	staffWrites := func(h http.HandlerFunc) http.Handler { return s.authenticate(s.requireStaff(h)) }
	public := func(h http.HandlerFunc) http.Handler { return s.authenticate(h) }
	private := func(h http.HandlerFunc) http.Handler { return s.authenticate(s.requireUser(h)) }

	s.handle(mux, "GET /api/categories", public(s.handleListCategories))
	s.handle(mux, "POST /api/categories", staffWrites(s.handleCreateCategory))
	s.handle(mux, "GET /api/categories/{id}", public(s.handleGetCategory))
	s.handle(mux, "PUT /api/categories/{id}", staffWrites(s.handleUpdateCategory))
	s.handle(mux, "PATCH /api/categories/{id}", staffWrites(s.handleUpdateCategory))
	s.handle(mux, "DELETE /api/categories/{id}", staffWrites(s.handleDeleteCategory))

	s.handle(mux, "GET /api/products", public(s.handleListProducts))
	s.handle(mux, "POST /api/products", staffWrites(s.handleCreateProduct))
	s.handle(mux, "GET /api/products/{id}", public(s.handleGetProduct))
	s.handle(mux, "PUT /api/products/{id}", staffWrites(s.handleUpdateProduct))
	s.handle(mux, "PATCH /api/products/{id}", staffWrites(s.handleUpdateProduct))
	s.handle(mux, "DELETE /api/products/{id}", staffWrites(s.handleDeleteProduct))

	s.handle(mux, "POST /api/register", http.HandlerFunc(s.handleRegister))
	s.handle(mux, "POST /api/token", http.HandlerFunc(s.handleToken))
	s.handle(mux, "POST /api/token/refresh", http.HandlerFunc(s.handleTokenRefresh))

	s.handle(mux, "GET /api/orders", private(s.handleListOrders))
	s.handle(mux, "POST /api/orders", private(s.handleCreateOrder))
	s.handle(mux, "GET /api/orders/{id}", private(s.handleGetOrder))

	s.handle(mux, "POST /api/mpesa/pay", private(s.payRateLimit(s.handleInitiatePayment)))
	s.handle(mux, "POST /api/mpesa/callback", http.HandlerFunc(s.handleMpesaCallback))
	s.handle(mux, "GET /api/mpesa/payments/{checkout_request_id}", private(s.handleGetPayment))

	return s.withCORS(stripTrailingSlash(mediaPathPrefix(s.opts.MediaPrefix), mux))
}

// handle registers pattern behind the observability chain. The pattern doubles
// as the low-cardinality route label.
func (s *Server) handle(mux *http.ServeMux, pattern string, handler http.Handler) {
	route := pattern
	wrapped := s.withTrace(
		ObservabilityMiddleware(
			s.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			s.opts.RequestID,
		)(
			s.withAccessLog(
				s.withHTTPMetrics(
					s.withRecover(handler),
				),
			),
		),
	)
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	}))
}

type rootResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Documentation string `json:"documentation"`
	Admin         string `json:"admin"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Status:        "success",
		Message:       "E-Commerce API is running successfully!",
		Documentation: "/docs/",
		Admin:         "/admin/",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			s.logger(r).Warn("health_check_failed", observability.F("error", err.Error()))
			writeError(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// stripTrailingSlash lets "/api/products/" and "/api/products" reach the same
// route. Paths under keep are left alone.
func stripTrailingSlash(keep string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") && !strings.HasPrefix(p, keep) {
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimRight(p, "/")
			if r2.URL.Path == "" {
				r2.URL.Path = "/"
			}
			r2.URL.RawPath = ""
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}

func mediaPathPrefix(mediaURL string) string {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil && u.Path != "" {
		p = u.Path
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
