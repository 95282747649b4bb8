// Package appconfig serves the application shell's bootstrap payload: the
// theme tokens the frontend applies globally plus which auth provider and
// collaboration backend are wired in.
package appconfig

import (
	"net/http"
	"os"

	"livedocs-server/handlers/auth"

	"github.com/go-chi/render"
)

type theme struct {
	BaseTheme    string `json:"baseTheme"`
	ColorPrimary string `json:"colorPrimary"`
	FontSize     string `json:"fontSize"`
	FontFamily   string `json:"fontFamily"`
}

type appConfig struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Theme         theme  `json:"theme"`
	AuthProvider  string `json:"authProvider"`
	CollabBackend string `json:"collabBackend"`
}

func HandleGet(authService *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		backend := os.Getenv("COLLAB_BACKEND")
		if backend == "" {
			backend = "memory"
		}
		render.JSON(w, r, appConfig{
			Name:        "LiveDocs",
			Description: "Collaborative editor docs",
			Theme: theme{
				BaseTheme:    "dark",
				ColorPrimary: "#3371ff",
				FontSize:     "16px",
				FontFamily:   "Inter",
			},
			AuthProvider:  authService.Provider(),
			CollabBackend: backend,
		})
	}
}
