package web

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Joseda-hg/taskdock/internal/db"
	"github.com/Joseda-hg/taskdock/internal/model"
)

const (
	defaultTokenTTL   = 7 * 24 * time.Hour
	minPasswordLength = 6
)

type ctxKey string

const userIDKey ctxKey = "user_id"

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func (t tokenIssuer) issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t tokenIssuer) parse(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")) == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		userID, err := s.tokens.parse(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

type authRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, req.Name, string(hash))
	if errors.Is(err, db.ErrEmailExists) {
		writeError(w, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.writeAuth(w, r, http.StatusCreated, "User created successfully", user)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	record, err := s.store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.writeAuth(w, r, http.StatusOK, "Login successful", record.User)
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.UserByID(r.Context(), userIDFromContext(r.Context()))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) writeAuth(w http.ResponseWriter, r *http.Request, status int, message string, user model.User) {
	token, err := s.tokens.issue(user.ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, status, map[string]any{"message": message, "user": user, "token": token})
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
