package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application/identity"
	domcatalog "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/paging"
	dompay "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgNotFound         = "Not found."
	msgInternal         = "A server error occurred."
	msgValidation       = "Invalid input."
	msgMalformed        = "Malformed request body."
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgTokenInvalid     = "Given token not valid for any token type"
	msgForbidden        = "You do not have permission to perform this action."
	msgThrottled        = "Request was throttled."
	msgProductInUse     = "Cannot delete this product because it is referenced by existing orders."
	msgGatewayFailed    = "Payment gateway request failed."
	msgGatewayTimeout   = "Payment gateway did not respond in time."
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON object. Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return validation.New("non_field_errors", "Request body must contain a single JSON object.")
	}
	return nil
}

// decodeError turns decoder failures into field errors where a field is known.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return validation.New("non_field_errors", "Request body is empty.")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return validation.New(typeErr.Field, fmt.Sprintf("Expected %s.", typeErr.Type.String()))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return validation.New(field, "Unknown field.")
	default:
		return validation.New("non_field_errors", msgMalformed)
	}
}

// writeDomainError maps use case errors to status codes. Anything unexpected
// is a 500 with the detail kept in the log.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgValidation, Fields: verrs})
	case errors.Is(err, paging.ErrInvalidPage):
		writeError(w, http.StatusNotFound, paging.ErrInvalidPage.Error())
	case errors.Is(err, domcatalog.ErrCategoryNotFound),
		errors.Is(err, domcatalog.ErrProductNotFound),
		errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, dompay.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, domcatalog.ErrProductInUse):
		writeError(w, http.StatusConflict, msgProductInUse)
	case errors.Is(err, domcatalog.ErrDuplicate),
		errors.Is(err, dompay.ErrConflict):
		writeError(w, http.StatusConflict, "Conflicting resource.")
	case errors.Is(err, dompay.ErrMissingInput):
		writeError(w, http.StatusBadRequest, "Phone number and amount are required")
	case errors.Is(err, dompay.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid amount")
	case errors.Is(err, dompay.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "Invalid phone number")
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeUnauthorized(w, "No active account found with the given credentials")
	case errors.Is(err, identity.ErrInvalidToken):
		writeUnauthorized(w, "Token is invalid or expired")
	case errors.Is(err, context.DeadlineExceeded):
		s.logFailure(r, err, http.StatusGatewayTimeout)
		writeError(w, http.StatusGatewayTimeout, msgGatewayTimeout)
	case errors.Is(err, dompay.ErrGatewayRejected),
		errors.Is(err, dompay.ErrGatewayUnavailable):
		s.logFailure(r, err, http.StatusBadGateway)
		writeError(w, http.StatusBadGateway, msgGatewayFailed)
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the body
		w.WriteHeader(499)
	default:
		s.logFailure(r, err, http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) logFailure(r *http.Request, err error, status int) {
	s.logger(r).Error("http_request_failed",
		observability.F("status", status),
		observability.F("error", err.Error()),
	)
	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// pathID parses a positive numeric path value.
func pathID(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// pageNumber reads ?page=; absent means 1, anything non-numeric is invalid.
func pageNumber(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, paging.ErrInvalidPage
	}
	return n, nil
}

type pageResponse[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func newPage[T any](r *http.Request, number int, total int64, results []T) pageResponse[T] {
	if results == nil {
		results = []T{}
	}
	last := paging.LastPage(total, paging.DefaultSize)
	p := pageResponse[T]{Count: total, Results: results}
	if number < last {
		u := pageURL(r, number+1)
		p.Next = &u
	}
	if number > 1 {
		u := pageURL(r, number-1)
		p.Previous = &u
	}
	return p
}

// pageURL rebuilds the absolute request URL pointing at page. Page 1 drops
// the parameter.
func pageURL(r *http.Request, page int) string {
	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{
		Scheme:   requestScheme(r),
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
