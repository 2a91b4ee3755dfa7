package auth

import (
	"context"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
)

// TokenResolver turns a plain text bearer token into its user.
type TokenResolver interface {
	Resolve(ctx context.Context, plainText string) (*model.User, error)
}

// TokenResolverFunc adapts a function to the TokenResolver interface.
type TokenResolverFunc func(ctx context.Context, plainText string) (*model.User, error)

func (f TokenResolverFunc) Resolve(ctx context.Context, plainText string) (*model.User, error) {
	return f(ctx, plainText)
}

// Middleware authenticates requests via the Authorization bearer header and
// stores the resolved user in the request context. Requests without a valid
// token are rejected with 401 before reaching the handler.
func Middleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			plainText, found := strings.CutPrefix(header, "Bearer ")
			if !found || plainText == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := resolver.Resolve(r.Context(), plainText)
			if err != nil {
				logger.WithError(err).Error("failed to resolve access token")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
