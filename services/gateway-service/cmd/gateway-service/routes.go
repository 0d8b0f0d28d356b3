package main

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/citaplus/citaplus/libs/auth"
	"github.com/citaplus/citaplus/libs/httpx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type upstreams struct {
	Search  *url.URL
	Booking *url.URL
}

func registerRoutes(mux *http.ServeMux, up upstreams, verifier *auth.Verifier, logger *slog.Logger) {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	searchProxy := newProxy(up.Search, transport, logger)
	bookingProxy := newProxy(up.Booking, transport, logger)

	registerProxy(mux, "/api/v1/public/search", optionalAuth(searchProxy, verifier))
	registerProxy(mux, "/api/v1/wizard", requireAuth(bookingProxy, verifier))
	registerProxy(mux, "/api/v1/appointments", requireAuth(requireRole(bookingProxy, auth.RoleClient, auth.RoleAdmin), verifier))
}

func newProxy(target *url.URL, transport http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = transport
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream error", "err", err, "upstream", target.Host, "path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return proxy
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// stripIdentity drops client supplied identity headers; only the gateway sets them.
func stripIdentity(r *http.Request) {
	r.Header.Del(httpx.UserIDHeader)
	r.Header.Del(httpx.RoleHeader)
}

func setIdentity(r *http.Request, claims *auth.Claims) {
	r.Header.Set(httpx.UserIDHeader, claims.Subject)
	r.Header.Set(httpx.RoleHeader, claims.AppRole())
}

func requireAuth(next http.Handler, verifier *auth.Verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stripIdentity(r)
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := verifier.Verify(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		setIdentity(r, claims)
		next.ServeHTTP(w, r)
	})
}

// optionalAuth forwards identity when a valid token is present and serves
// the request anonymously otherwise.
func optionalAuth(next http.Handler, verifier *auth.Verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stripIdentity(r)
		if token, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
			if claims, err := verifier.Verify(r.Context(), token); err == nil {
				setIdentity(r, claims)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(next http.Handler, roles ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := allowed[r.Header.Get(httpx.RoleHeader)]; !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
