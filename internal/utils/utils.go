package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Envelope map[string]any

type APIResponse struct {
	Error      bool   `json:"error"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
}

// Getenv returns the environment variable key, or fallback when it is unset
// or blank.
func Getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// ReadIDParam returns the {id} route parameter.
func ReadIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", errors.New("invalid id parameter")
	}
	return id, nil
}

func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// Redirect sends the browser to url, through HX-Redirect when the request
// came from htmx.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	if IsHTMX(r) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

type Toast struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// TriggerToast asks the page to show a toast. kind is "success" or "error".
func TriggerToast(w http.ResponseWriter, message, kind string) {
	trigger(w, Envelope{"showToast": Toast{Message: message, Type: kind}})
}

// TriggerToasts shows several toasts from one response.
func TriggerToasts(w http.ResponseWriter, toasts []Toast) {
	trigger(w, Envelope{"showToasts": toasts})
}

func trigger(w http.ResponseWriter, events Envelope) {
	payload, err := json.Marshal(events)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(payload))
}

func write(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	js, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(APIResponse{
			Error:      true,
			Message:    "failed to encode response",
			StatusCode: http.StatusInternalServerError,
		})
		return
	}

	w.WriteHeader(status)
	js = append(js, '\n')
	_, _ = w.Write(js)
}

func OK(w http.ResponseWriter, status int, data any, msg string) {
	write(w, status, APIResponse{
		Error:      false,
		Message:    msg,
		StatusCode: status,
		Data:       data,
	})
}

func Tern(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
