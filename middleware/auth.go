package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"eshop/utils"

	"github.com/sirupsen/logrus"
)

// Key type for context
type contextKey string

const UserContextKey = contextKey("user")

// Exemption lets requests whose path matches Pattern through without a
// token. An empty Methods list matches every method.
type Exemption struct {
	Pattern *regexp.Regexp
	Methods []string
}

func (e Exemption) matches(r *http.Request) bool {
	if !e.Pattern.MatchString(r.URL.Path) {
		return false
	}
	return len(e.Methods) == 0 || slices.Contains(e.Methods, r.Method)
}

// DefaultExemptions is the public surface: uploaded images and the product,
// category and order reads, plus login and register.
func DefaultExemptions(apiPrefix string) []Exemption {
	prefix := regexp.QuoteMeta(strings.TrimSuffix(apiPrefix, "/"))
	readOnly := []string{http.MethodGet, http.MethodOptions}
	files := []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	return []Exemption{
		{Pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(strings.TrimSuffix(utils.PublicUploadPath, "/")) + `(/.*)?$`), Methods: files},
		{Pattern: regexp.MustCompile(`^` + prefix + `/products(/.*)?$`), Methods: readOnly},
		{Pattern: regexp.MustCompile(`^` + prefix + `/categories(/.*)?$`), Methods: readOnly},
		{Pattern: regexp.MustCompile(`^` + prefix + `/orders(/.*)?$`), Methods: readOnly},
		{Pattern: regexp.MustCompile(`^` + prefix + `/users/login/?$`)},
		{Pattern: regexp.MustCompile(`^` + prefix + `/users/register/?$`)},
	}
}

// RevocationCheck decides whether an otherwise valid token must be rejected.
type RevocationCheck func(claims *utils.Claims) bool

// RevokeNonAdmin rejects every token without the admin flag.
func RevokeNonAdmin(claims *utils.Claims) bool {
	return !claims.IsAdmin
}

// NeverRevoke accepts every valid token.
func NeverRevoke(*utils.Claims) bool {
	return false
}

// Gate guards every route that is not exempted with a bearer token check.
type Gate struct {
	tokens     *utils.TokenManager
	exemptions []Exemption
	isRevoked  RevocationCheck
	log        logrus.FieldLogger
}

func NewGate(tokens *utils.TokenManager, exemptions []Exemption, isRevoked RevocationCheck, logger logrus.FieldLogger) *Gate {
	if isRevoked == nil {
		isRevoked = NeverRevoke
	}
	return &Gate{tokens: tokens, exemptions: exemptions, isRevoked: isRevoked, log: logger}
}

// Exempt reports whether r bypasses verification.
func (g *Gate) Exempt(r *http.Request) bool {
	for _, e := range g.exemptions {
		if e.matches(r) {
			return true
		}
	}
	return false
}

// Authorize verifies r's bearer token and applies the revocation check.
func (g *Gate) Authorize(r *http.Request) (*utils.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("%w: authorization header missing", utils.ErrUnauthorized)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, fmt.Errorf("%w: invalid authorization header format", utils.ErrUnauthorized)
	}

	claims, err := g.tokens.Verify(parts[1])
	if err != nil {
		return nil, err
	}
	if g.isRevoked(claims) {
		return nil, fmt.Errorf("%w: token revoked", utils.ErrUnauthorized)
	}
	return claims, nil
}

// Middleware rejects unauthorized requests and attaches the claims of
// authorized ones to the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Exempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.Authorize(r)
		if err != nil {
			g.log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).WithError(err).Warn("Request rejected by authorization gate")
			HandleError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the claims attached by the gate, if any.
func ClaimsFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*utils.Claims)
	return claims, ok
}

// HandleError is the last-resort error writer: authorization failures get a
// generic 401, everything else a 500.
func HandleError(w http.ResponseWriter, err error) {
	if errors.Is(err, utils.ErrUnauthorized) {
		utils.WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "The user is not authorized"})
		return
	}
	utils.WriteJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
}
