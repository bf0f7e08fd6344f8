package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// POST /auth/register  { "username": "...", "password": "...", "role": "teacher|student" }
func RegisterHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}
		if req.Role != "teacher" && req.Role != "student" {
			http.Error(w, "role must be teacher or student", http.StatusBadRequest)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		id := uuid.NewString()
		_, err = db.ExecContext(r.Context(),
			`INSERT INTO users (id,username,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5)`,
			id, req.Username, string(hash), req.Role, time.Now().Unix())
		if err != nil {
			// unique username constraint is the usual culprit
			http.Error(w, "username taken", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "username": req.Username, "role": req.Role})
	}
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(db *sql.DB, a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var id, hash, role string
		err := db.QueryRowContext(r.Context(),
			`SELECT id,password_hash,role FROM users WHERE username=$1`, req.Username).Scan(&id, &hash, &role)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "lookup user", http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(id, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "user_id": id, "role": role})
	}
}

// SeedUser inserts a user with a precomputed bcrypt hash if the username
// is not present yet. Used to bootstrap a teacher account from config.
func SeedUser(db *sql.DB, username, passHash, role string) error {
	if username == "" || passHash == "" {
		return nil
	}
	_, err := db.Exec(`INSERT INTO users (id,username,password_hash,role,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (username) DO NOTHING`,
		uuid.NewString(), username, passHash, role, time.Now().Unix())
	return err
}
