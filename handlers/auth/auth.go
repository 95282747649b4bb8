package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"livedocs-server/config"
	"livedocs-server/core"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Claims are the session token's custom claims. Email is load-bearing: room
// access maps are keyed by it.
type Claims struct {
	jwt.RegisteredClaims
	Login     string `json:"login"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl"`
	Name      string `json:"name"`
}

type oidcClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
	Sub               string `json:"sub"`
}

// Service is the identity-provider integration: it runs the OAuth/OIDC
// login flow and mints the HS256 session tokens the API trusts.
type Service struct {
	jwtSecret []byte
	provider  string

	githubConfig *oauth2.Config

	oidcConfig   *oauth2.Config
	oidcVerifier *oidc.IDTokenVerifier
}

// NewService wires the configured identity provider. OIDC wins when both are
// configured; with neither, login routes answer 500 and the service only
// validates tokens minted elsewhere.
func NewService(cfg *config.Config) *Service {
	s := &Service{
		jwtSecret: []byte(cfg.JWTSecret),
		provider:  "none",
	}
	if len(s.jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}

	switch {
	case cfg.OIDCConfigured():
		logrus.Info("Initializing OIDC authentication provider.")
		s.initOIDC(cfg)
	case cfg.GitHubConfigured():
		logrus.Info("Initializing GitHub authentication provider.")
		s.initGitHub(cfg)
	default:
		logrus.Warn("No authentication provider configured.")
	}
	return s
}

// Provider names the active identity provider ("oidc", "github" or "none").
func (s *Service) Provider() string {
	return s.provider
}

func (s *Service) initGitHub(cfg *config.Config) {
	s.githubConfig = &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}
	s.provider = "github"
}

func (s *Service) initOIDC(cfg *config.Config) {
	provider, err := oidc.NewProvider(context.Background(), cfg.OIDCIssuerURL)
	if err != nil {
		logrus.Errorf("Failed to create OIDC provider: %s", err.Error())
		return
	}

	s.oidcConfig = &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		Endpoint:     provider.Endpoint(),
	}
	s.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	s.provider = "oidc"
}

func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	switch s.provider {
	case "oidc":
		s.handleOIDCLogin(w, r)
	case "github":
		s.handleGitHubLogin(w, r)
	default:
		http.Error(w, "Authentication not configured", http.StatusInternalServerError)
	}
}

func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) {
	switch s.provider {
	case "oidc":
		s.handleOIDCCallback(w, r)
	case "github":
		s.handleGitHubCallback(w, r)
	default:
		http.Error(w, "Authentication not configured", http.StatusInternalServerError)
	}
}

func stateCookie(w http.ResponseWriter, r *http.Request, name string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

func (s *Service) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state, err := stateCookie(w, r, "oauthstate")
	if err != nil {
		http.Error(w, "Failed to generate login state", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.githubConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (s *Service) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	token, err := s.githubConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		logrus.Errorf("failed to exchange token: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	client := s.githubConfig.Client(r.Context(), token)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		logrus.Errorf("failed to get user from github: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Errorf("failed to read github response body: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	var githubUser struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		Name      string `json:"name"`
	}
	if err := json.Unmarshal(body, &githubUser); err != nil {
		logrus.Errorf("failed to unmarshal github user: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	user := &core.User{
		Subject:   fmt.Sprintf("github:%d", githubUser.ID),
		Login:     githubUser.Login,
		Email:     githubUser.Email,
		AvatarURL: githubUser.AvatarURL,
		Name:      githubUser.Name,
	}
	s.finishLogin(w, r, user)
}

func (s *Service) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidcConfig == nil {
		http.Error(w, "OIDC is not configured", http.StatusInternalServerError)
		return
	}
	state, err := stateCookie(w, r, "oidc_state")
	if err != nil {
		http.Error(w, "Failed to generate login state", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.oidcConfig.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

func (s *Service) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidcConfig == nil {
		http.Error(w, "OIDC is not configured", http.StatusInternalServerError)
		return
	}

	code := r.FormValue("code")
	if code == "" {
		logrus.Error("no code in callback")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	token, err := s.oidcConfig.Exchange(r.Context(), code)
	if err != nil {
		logrus.Errorf("failed to exchange token: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		logrus.Error("no id_token in token response")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	idToken, err := s.oidcVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		logrus.Errorf("failed to verify ID token: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		logrus.Errorf("failed to extract claims from ID token: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	user := &core.User{
		Subject:   claims.Sub,
		Login:     claims.PreferredUsername,
		Email:     claims.Email,
		AvatarURL: claims.Picture,
		Name:      claims.Name,
	}
	if user.Login == "" && user.Email != "" {
		user.Login = user.Email
	}
	s.finishLogin(w, r, user)
}

func (s *Service) finishLogin(w http.ResponseWriter, r *http.Request, user *core.User) {
	sessionToken, err := s.CreateSession(user)
	if err != nil {
		logrus.Errorf("failed to create session token: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/?token=%s", sessionToken), http.StatusTemporaryRedirect)
}

// CreateSession mints a one-week session token for the user.
func (s *Service) CreateSession(user *core.User) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Login:     user.Login,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Name:      user.Name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ParseSession validates a session token and returns its claims.
func (s *Service) ParseSession(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
