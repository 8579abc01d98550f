package httppresentation

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type principalKey struct{}

func principalFrom(ctx context.Context) (*user.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*user.Principal)
	return p, ok && p != nil
}

// authenticate resolves an optional bearer token. A malformed or invalid
// token is rejected even on public routes; no header means anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeUnauthorized(w, msgTokenInvalid)
			return
		}
		if s.opts.Auth == nil {
			writeUnauthorized(w, msgTokenInvalid)
			return
		}
		p, err := s.opts.Auth.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			s.logger(r).Debug("auth_token_rejected", observability.F("error", err.Error()))
			writeUnauthorized(w, msgTokenInvalid)
			return
		}

		trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int64("user.id", int64(p.UserID)))
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		ctx = logctx.Enrich(ctx, observability.F("user_id", p.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := principalFrom(r.Context()); !ok {
			writeUnauthorized(w, msgNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireStaff lets safe methods through and limits the rest to staff.
func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		p, ok := principalFrom(r.Context())
		if !ok {
			writeUnauthorized(w, msgNotAuthenticated)
			return
		}
		if !p.IsStaff {
			writeError(w, http.StatusForbidden, msgForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// payRateLimit throttles payment initiation per user. Limiter failures let
// the request through.
func (s *Server) payRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if s.opts.Limiter == nil || !ok || s.opts.PayRateLimit <= 0 {
			next(w, r)
			return
		}
		res, err := s.opts.Limiter.Allow(r.Context(), fmt.Sprintf("pay:user:%d", p.UserID), s.opts.PayRateLimit, s.opts.PayRateWindow)
		if err != nil {
			s.logger(r).Warn("rate_limit_check_failed", observability.F("error", err.Error()))
			next(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := res.RetryAfter(time.Now())
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
			s.rateLimited.Add(1, observability.L("route", routeTemplate(routeFromContext(r.Context()))))
			s.logger(r).Info("rate_limited", observability.F("retry_after_s", int(retry.Seconds())))
			writeError(w, http.StatusTooManyRequests, msgThrottled)
			return
		}
		next(w, r)
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, msg)
}
