package httpadapter

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/construo/opsportal/internal/core/domain"
)

// Claims carry the portal identity: which user, which contractor company, and
// the capability grants computed at login time.
type Claims struct {
	UserID      string   `json:"userId"`
	CompanyID   string   `json:"companyId"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

func GenerateToken(secret, userID, companyID string, permissions []string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:      userID,
		CompanyID:   companyID,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

type claimsContextKey struct{}

func authMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			claims, err := ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}

// hasCapability reports whether the request's token carries the grant. Used by
// handlers whose service port takes no session, such as the sweep endpoint.
func hasCapability(ctx context.Context, capability string) bool {
	claims := claimsFromContext(ctx)
	return claims != nil && slices.Contains(claims.Permissions, capability)
}

func sessionFromContext(ctx context.Context) (domain.Session, bool) {
	claims := claimsFromContext(ctx)
	if claims == nil {
		return domain.Session{}, false
	}
	return domain.Session{UserID: claims.UserID, CompanyID: claims.CompanyID}, true
}

// ClaimsAuthorizer answers capability checks from the token's permission
// grants. The core asks about the session user only, so a mismatched id means
// a wiring bug and reads as denied.
type ClaimsAuthorizer struct{}

func NewClaimsAuthorizer() *ClaimsAuthorizer {
	return &ClaimsAuthorizer{}
}

func (a *ClaimsAuthorizer) HasPermission(ctx context.Context, userID, capability string) (bool, error) {
	claims := claimsFromContext(ctx)
	if claims == nil || claims.UserID != userID {
		return false, nil
	}
	return slices.Contains(claims.Permissions, capability), nil
}
