package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfman30/grievai-platform/internal/identity"
)

// Claims are the identity provider's access token claims.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
}

// AppRole prefers the application role over the provider's generic role.
func (c *Claims) AppRole() identity.Role {
	if strings.TrimSpace(c.AppMetadata.Role) != "" {
		return identity.ParseRole(c.AppMetadata.Role)
	}
	return identity.ParseRole(c.Role)
}

// RequireAuth validates an HS256 bearer token and stores the caller's
// principal in the request context. Requests without a valid token never
// reach next.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeUnauthorized(w)
				return
			}
			tokenString, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w)
				return
			}
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
				writeUnauthorized(w)
				return
			}

			ctx := identity.WithPrincipal(r.Context(), identity.Principal{
				UserID: claims.Subject,
				Email:  claims.Email,
				Role:   claims.AppRole(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AnonymousPrincipal is used when authentication is switched off.
var AnonymousPrincipal = identity.Principal{UserID: "anonymous", Role: identity.RoleCitizen}

// AllowAnonymous attaches AnonymousPrincipal to requests that carry none.
func AllowAnonymous() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := identity.PrincipalFromContext(r.Context()); !ok {
				r = r.WithContext(identity.WithPrincipal(r.Context(), AnonymousPrincipal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects principals whose role is not in roles with 403.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := identity.PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
