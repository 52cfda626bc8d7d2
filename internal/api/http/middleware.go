package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rentchain-backend/internal/config"
	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type contextKey int

const (
	actorKey contextKey = iota
	requestIDKey
)

// ActorFromContext returns the authenticated caller, or the zero Actor.
func ActorFromContext(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey).(domain.Actor)
	return actor
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = logger.AppendContext(ctx, "request_id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		logger.DebugContext(ctx, "HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Handler authenticates the request according to the security level of the
// matched route and stores the caller's Actor in the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := config.GetSecurityLevel(routeKey(r))
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, domain.NewError(domain.KindUnauthorized, "authorization token is not provided"))
			return
		}
		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeError(w, r, domain.WrapError(domain.KindUnauthorized, err, "invalid token"))
			return
		}

		actor := domain.Actor{ID: claims.UserID, Role: domain.Role(strings.ToUpper(claims.Role))}
		if !actor.Authenticated() {
			writeError(w, r, domain.NewError(domain.KindUnauthorized, "token carries no usable identity"))
			return
		}
		if level == config.SecurityAdmin && actor.Role != domain.RoleAdmin {
			writeError(w, r, domain.NewError(domain.KindForbidden, "admin role required"))
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = logger.AppendContext(ctx, "actor_id", actor.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// routeKey is "METHOD /path-template" of the matched route.
func routeKey(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.Method + " " + r.URL.Path
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return r.Method + " " + r.URL.Path
	}
	return r.Method + " " + tpl
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:]), true
	}
	return "", false
}
