package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradingjournal/src/auth"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.AccessToken{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	return db
}

func newUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()

	user := &model.User{Name: "Tester", Email: "tester@example.com", Password: "hashed"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestIssueAndResolveToken(t *testing.T) {
	db := newTestDB(t)
	tokens := repository.NewAccessTokenRepository().WithDB(db)
	user := newUser(t, db)
	ctx := context.Background()

	plainText, err := auth.IssueToken(ctx, tokens, user, auth.TokenName)
	require.NoError(t, err)
	require.Contains(t, plainText, "|")

	resolved, err := auth.ResolveToken(ctx, tokens, plainText)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	require.Equal(t, user.ID, resolved.ID)

	// resolving marks the token as used
	var stored model.AccessToken
	require.NoError(t, db.First(&stored).Error)
	require.NotNil(t, stored.LastUsedAt)
}

func TestResolveTokenRejectsBadSecrets(t *testing.T) {
	db := newTestDB(t)
	tokens := repository.NewAccessTokenRepository().WithDB(db)
	user := newUser(t, db)
	ctx := context.Background()

	plainText, err := auth.IssueToken(ctx, tokens, user, auth.TokenName)
	require.NoError(t, err)

	id, _, _ := strings.Cut(plainText, "|")

	for _, bad := range []string{
		"",
		"not-a-token",
		id + "|wrong-secret",
		"9999|" + strings.SplitN(plainText, "|", 2)[1],
	} {
		resolved, err := auth.ResolveToken(ctx, tokens, bad)
		require.NoError(t, err, "token %q", bad)
		require.Nil(t, resolved, "token %q must not resolve", bad)
	}
}

func TestResolveTokenAfterRevocation(t *testing.T) {
	db := newTestDB(t)
	tokens := repository.NewAccessTokenRepository().WithDB(db)
	user := newUser(t, db)
	ctx := context.Background()

	plainText, err := auth.IssueToken(ctx, tokens, user, auth.TokenName)
	require.NoError(t, err)

	require.NoError(t, tokens.DeleteForUser(ctx, user.ID))

	resolved, err := auth.ResolveToken(ctx, tokens, plainText)
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestMiddleware(t *testing.T) {
	user := &model.User{ID: 7, Name: "Tester"}
	resolver := auth.TokenResolverFunc(func(_ context.Context, plainText string) (*model.User, error) {
		if plainText == "good" {
			return user, nil
		}
		return nil, nil
	})

	var gotUser *model.User
	handler := auth.Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = auth.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, gotUser)
		require.Equal(t, user.ID, gotUser.ID)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
