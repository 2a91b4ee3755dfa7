package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

// TokenName labels tokens issued by the register/login endpoints.
const TokenName = "auth_token"

// IssueToken creates a personal access token for the user and returns its
// plain text form "<id>|<secret>". Only the digest of the secret is stored,
// so the plain text can never be recovered from the database.
func IssueToken(
	ctx context.Context,
	tokens *repository.AccessTokenRepository,
	user *model.User,
	name string,
) (string, error) {

	secret := uuid.NewString()
	token := &model.AccessToken{
		UserID:    user.ID,
		Name:      name,
		TokenHash: hashSecret(secret),
	}
	if err := tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store access token: %w", err)
	}

	return fmt.Sprintf("%d|%s", token.ID, secret), nil
}

// ResolveToken validates a plain text bearer token and returns its user.
// Returns (nil, nil) for tokens that are malformed, unknown or revoked.
func ResolveToken(
	ctx context.Context,
	tokens *repository.AccessTokenRepository,
	plainText string,
) (*model.User, error) {

	idPart, secret, found := strings.Cut(plainText, "|")
	if !found {
		return nil, nil
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return nil, nil
	}

	token, err := tokens.FindByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if token == nil || token.User == nil {
		return nil, nil
	}

	digest := hashSecret(secret)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(token.TokenHash)) != 1 {
		return nil, nil
	}

	if err := tokens.Touch(ctx, token.ID, time.Now()); err != nil {
		return nil, err
	}

	return token.User, nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
