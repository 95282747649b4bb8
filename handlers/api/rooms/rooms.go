package rooms

import (
	"errors"
	"net/http"

	"livedocs-server/core"
	"livedocs-server/documents"
	"livedocs-server/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// writeError maps an action-layer error kind onto an HTTP status and a
// stable machine-readable code, so clients branch on the code instead of
// matching message strings.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "backend_error"
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, core.ErrAccessDenied):
		status = http.StatusForbidden
		code = "access_denied"
	case errors.Is(err, core.ErrSelfRemoval):
		status = http.StatusUnprocessableEntity
		code = "self_removal_rejected"
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error(), "code": code})
}

func claimsOrFail(w http.ResponseWriter, r *http.Request) (subject, email string, ok bool) {
	claims, err := middleware.ClaimsFrom(r.Context())
	if err != nil {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "User claims not found"})
		return "", "", false
	}
	return claims.Subject, claims.Email, true
}

func HandleCreate(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, email, ok := claimsOrFail(w, r)
		if !ok {
			return
		}

		room, err := service.CreateDocument(r.Context(), subject, email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, room)
	}
}

func HandleList(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, email, ok := claimsOrFail(w, r)
		if !ok {
			return
		}

		rooms, err := service.GetAllDocuments(r.Context(), email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rooms == nil {
			rooms = []*core.Room{}
		}
		render.JSON(w, r, rooms)
	}
}

func HandleGet(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, email, ok := claimsOrFail(w, r)
		if !ok {
			return
		}

		roomID := chi.URLParam(r, "id")
		if roomID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Room id is required"})
			return
		}

		room, err := service.GetDocument(r.Context(), roomID, email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, room)
	}
}

func HandleUpdateTitle(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := claimsOrFail(w, r); !ok {
			return
		}

		roomID := chi.URLParam(r, "id")
		var body struct {
			Title string `json:"title"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil || body.Title == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Title is required"})
			return
		}

		room, err := service.UpdateDocument(r.Context(), roomID, body.Title)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, room)
	}
}

func HandleShare(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.ClaimsFrom(r.Context())
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		roomID := chi.URLParam(r, "id")
		var body struct {
			Email    string        `json:"email"`
			UserType core.UserType `json:"userType"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil || body.Email == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Collaborator email is required"})
			return
		}

		room, err := service.UpdateDocumentAccess(r.Context(), documents.ShareParams{
			RoomID:   roomID,
			Email:    body.Email,
			UserType: body.UserType,
			UpdatedBy: documents.UpdatedBy{
				Name:   claims.Name,
				Email:  claims.Email,
				Avatar: claims.AvatarURL,
			},
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, room)
	}
}

func HandleRemoveCollaborator(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := claimsOrFail(w, r); !ok {
			return
		}

		roomID := chi.URLParam(r, "id")
		var body struct {
			Email string `json:"email"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil || body.Email == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Collaborator email is required"})
			return
		}

		room, err := service.RemoveCollaborator(r.Context(), roomID, body.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, room)
	}
}

func HandleDelete(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := claimsOrFail(w, r); !ok {
			return
		}

		roomID := chi.URLParam(r, "id")
		if err := service.DeleteDocument(r.Context(), roomID); err != nil {
			writeError(w, r, err)
			return
		}
		// Send the client back to the listing once the room is gone.
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func HandleListNotifications(service *documents.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, email, ok := claimsOrFail(w, r)
		if !ok {
			return
		}

		notifications, err := service.ListNotifications(r.Context(), email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if notifications == nil {
			notifications = []*core.InboxNotification{}
		}
		render.JSON(w, r, notifications)
	}
}

// CacheKey maps a rooms request onto the logical route path the action layer
// invalidates: the listing lives at "/", a single document at
// "/documents/{id}". Responses are cached per authenticated email.
func CacheKey(r *http.Request) (path, principal string, ok bool) {
	claims, err := middleware.ClaimsFrom(r.Context())
	if err != nil {
		return "", "", false
	}
	if id := chi.URLParam(r, "id"); id != "" {
		return "/documents/" + id, claims.Email, true
	}
	return "/", claims.Email, true
}
