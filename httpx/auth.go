package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/auth"
	"backoffice/errors"
	"backoffice/model"
	"backoffice/service"
)

// AuthResponse 登录与注册的响应
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	User        AuthUser `json:"user"`
}

// AuthUser 令牌对应的用户摘要
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthRoutes /auth 下的注册、登录与令牌校验
type AuthRoutes struct {
	users    *service.UserService
	resolver *auth.Resolver
}

func NewAuthRoutes(users *service.UserService, resolver *auth.Resolver) *AuthRoutes {
	return &AuthRoutes{users: users, resolver: resolver}
}

func (a *AuthRoutes) GetName() string  { return "auth" }
func (a *AuthRoutes) GetPriority() int { return 0 }

func (a *AuthRoutes) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
		r.Post("/validate-token", a.handleValidate)
	})
}

func (a *AuthRoutes) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
	if err := decodeInto(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.respond(w, r, http.StatusCreated, user)
}

func (a *AuthRoutes) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeInto(r, &creds); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.users.Login(r.Context(), creds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.respond(w, r, http.StatusOK, user)
}

func (a *AuthRoutes) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeInto(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Token == "" {
		writeError(w, r, errors.NewError(errors.ErrCodeUnauthorized, "缺少访问令牌"))
		return
	}
	user, err := a.resolver.Resolve(r.Context(), body.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, present(user))
}

func (a *AuthRoutes) respond(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, err := a.resolver.Tokens().Issue(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, AuthResponse{
		AccessToken: token,
		User:        AuthUser{ID: user.ID, Email: user.Email, Role: user.Role},
	})
}
