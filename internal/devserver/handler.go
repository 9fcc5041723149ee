package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// AuthHandler holds dependencies for the auth and user handlers.
type AuthHandler struct {
	store  Store
	tokens *Tokens
	logger *slog.Logger
	cost   int
}

// NewAuthHandler creates a new handler with the given store, token issuer and logger.
func NewAuthHandler(store Store, tokens *Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, logger: logger, cost: bcrypt.DefaultCost}
}

// currentAccount loads the account named by the JWT subject.
func (h *AuthHandler) currentAccount(w http.ResponseWriter, r *http.Request) (Account, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing claims")
		return Account{}, false
	}

	a, err := h.store.AccountByID(r.Context(), claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return Account{}, false
	}
	if err != nil {
		h.logger.Error("store.AccountByID failed", "error", err, "userId", claims.Subject)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return Account{}, false
	}
	return a, true
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, u User) {
	token, _, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.logger.Error("token issue failed", "error", err, "userId", u.ID)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, status, AuthResponse{User: u, Token: token})
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, ErrPasswordTooShort.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	now := time.Now().UTC()
	account := Account{
		User:         User{ID: uuid.NewString(), Email: email, Name: name},
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = h.store.CreateAccount(r.Context(), account)
	if errors.Is(err, ErrUserExists) {
		writeError(w, http.StatusConflict, ErrUserExists.Error())
		return
	}
	if err != nil {
		h.logger.Error("store.CreateAccount failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	h.logger.Info("user registered", "userId", account.ID)
	h.respondWithToken(w, http.StatusCreated, account.User)
}

// Login checks credentials and returns a fresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	account, err := h.store.AccountByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		h.logger.Error("store.AccountByEmail failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	// Unknown email and wrong password look the same to the caller.
	if err != nil || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}

	h.respondWithToken(w, http.StatusOK, account.User)
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing claims")
		return
	}

	if claims.TokenID != "" {
		if err := h.store.RevokeToken(r.Context(), claims.TokenID, claims.ExpiresAt); err != nil {
			h.logger.Error("store.RevokeToken failed", "error", err, "userId", claims.Subject)
			writeError(w, http.StatusInternalServerError, "failed to sign out")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, account.User)
}

// UpdateMe changes the signed-in user's name or avatar.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == nil && req.Avatar == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		account.Name = name
	}
	if req.Avatar != nil {
		account.Avatar = *req.Avatar
	}
	account.UpdatedAt = time.Now().UTC()

	if err := h.store.UpdateAccount(r.Context(), account); err != nil {
		h.logger.Error("store.UpdateAccount failed", "error", err, "userId", account.ID)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, account.User)
}
