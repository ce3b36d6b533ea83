package www

import (
	"net/http"

	"github.com/go-chi/render"
)

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Status: "ERROR", Error: msg})
}
