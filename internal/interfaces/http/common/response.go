package common

import (
	"net/http"

	"github.com/go-chi/render"
)

// MessageResponse is the JSON body of non-success webhook replies.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON serializes payload to JSON with status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}

// WriteMessage writes {"message": message} with status.
func WriteMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSON(w, r, status, MessageResponse{Message: message})
}

// WriteText writes a plain text body with status.
func WriteText(w http.ResponseWriter, r *http.Request, status int, text string) {
	render.Status(r, status)
	render.PlainText(w, r, text)
}
