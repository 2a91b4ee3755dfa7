package handler

import (
	"net/http"
	"net/mail"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tradingjournal/src/auth"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

const minPasswordLength = 8

// RegisterHandler creates a user account and returns a fresh access token so
// the client is logged in straight away.
func RegisterHandler() http.HandlerFunc {
	users := repository.NewUserRepository()
	tokens := repository.NewAccessTokenRepository()

	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.RegisterPayload
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		payload.Name = strings.TrimSpace(payload.Name)
		payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))

		if fields := validateRegister(payload); len(fields) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, envelope{
				Status:  "error",
				Message: "Validation failed",
				Errors:  fields,
			})
			return
		}

		existing, err := users.FindByEmail(r.Context(), payload.Email)
		if err != nil {
			logger.WithError(err).Error("failed to look up email")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusUnprocessableEntity, envelope{
				Status:  "error",
				Message: "Validation failed",
				Errors:  map[string]string{"email": "is already taken"},
			})
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.WithError(err).Error("failed to hash password")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		user := &model.User{
			Name:     payload.Name,
			Email:    payload.Email,
			Password: string(hashed),
		}
		if err := users.Create(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to create user")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		plainText, err := auth.IssueToken(r.Context(), tokens, user, auth.TokenName)
		if err != nil {
			logger.WithError(err).Error("failed to issue token")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		respondSuccess(w, http.StatusCreated, "Registered", map[string]interface{}{
			"user":  user.ToResponse(),
			"token": plainText,
		})
	}
}

func validateRegister(payload model.RegisterPayload) map[string]string {
	fields := map[string]string{}

	if payload.Name == "" {
		fields["name"] = "is required"
	}
	if _, err := mail.ParseAddress(payload.Email); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len(payload.Password) < minPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}
	if payload.Password != payload.PasswordConfirmation {
		fields["password_confirmation"] = "does not match password"
	}

	return fields
}

// LoginHandler exchanges credentials for an access token. With
// logout_other_devices set, every previously issued token is revoked first.
func LoginHandler() http.HandlerFunc {
	users := repository.NewUserRepository()
	tokens := repository.NewAccessTokenRepository()

	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.LoginPayload
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		email := strings.TrimSpace(strings.ToLower(payload.Email))

		user, err := users.FindByEmail(r.Context(), email)
		if err != nil {
			logger.WithError(err).Error("failed to look up user")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if user == nil ||
			bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)) != nil {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if payload.LogoutOtherDevices {
			if err := tokens.DeleteForUser(r.Context(), user.ID); err != nil {
				logger.WithError(err).Error("failed to revoke tokens")
				respondError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
		}

		plainText, err := auth.IssueToken(r.Context(), tokens, user, auth.TokenName)
		if err != nil {
			logger.WithError(err).Error("failed to issue token")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		respondSuccess(w, http.StatusOK, "Logged in", map[string]interface{}{
			"user":  user.ToResponse(),
			"token": plainText,
		})
	}
}

// MeHandler returns the authenticated user's profile.
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		respondSuccess(w, http.StatusOK, "Profile retrieved", user.ToResponse())
	}
}

// LogoutHandler revokes the user's access tokens.
func LogoutHandler() http.HandlerFunc {
	tokens := repository.NewAccessTokenRepository()

	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if err := tokens.DeleteForUser(r.Context(), user.ID); err != nil {
			logger.WithError(err).Error("failed to revoke tokens")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		respondSuccess(w, http.StatusOK, "Logged out", nil)
	}
}

// ChangePasswordHandler updates the password after verifying the current one.
func ChangePasswordHandler() http.HandlerFunc {
	users := repository.NewUserRepository()

	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var payload model.ChangePasswordPayload
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		if len(payload.NewPassword) < minPasswordLength {
			writeJSON(w, http.StatusUnprocessableEntity, envelope{
				Status:  "error",
				Message: "Validation failed",
				Errors:  map[string]string{"new_password": "must be at least 8 characters"},
			})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.CurrentPassword)) != nil {
			respondError(w, http.StatusUnauthorized, "Invalid current password")
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.WithError(err).Error("failed to hash new password")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		user.Password = string(hashed)
		if err := users.Update(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to update password")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		respondSuccess(w, http.StatusOK, "Password updated", nil)
	}
}
