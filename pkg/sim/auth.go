package sim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"command-center/pkg/auth"
	"command-center/pkg/model"
)

type AuthHandler struct {
	DB *gorm.DB
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/auth/register", a.handleRegister)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
}

// handleRegister only allows the first user to be created (admin).
func (a *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var count int64
	a.DB.Model(&model.User{}).Count(&count)
	if count > 0 {
		http.Error(w, "registration closed", http.StatusForbidden)
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	user := model.User{Username: req.Username, PasswordHash: string(hash), IsAdmin: true}
	if err := a.DB.Create(&user).Error; err != nil {
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	token, _ := auth.Generate(userID(user), user.Username, 24*time.Hour)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var user model.User
	if err := a.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, _ := auth.Generate(userID(user), user.Username, 24*time.Hour)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func userID(u model.User) string {
	return fmt.Sprintf("user-%d", u.ID)
}

// BearerAuth returns a request gate for the dispatch routes. With requireJWT
// off every request passes, matching the open dev setup.
func BearerAuth(requireJWT bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if !requireJWT {
			return true
		}
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			return false
		}
		_, err := auth.Parse(strings.TrimPrefix(h, "Bearer "))
		return err == nil
	}
}
