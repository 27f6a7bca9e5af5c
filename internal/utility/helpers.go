package utility

import (
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
)

// WriteText writes a plain text response.
func WriteText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(msg)); err != nil {
		log.WithField("err", err).Warn("Failed writing response")
	}
}

func HttpError(w http.ResponseWriter, code int, msg string) {
	WriteText(w, code, msg)
}

func Getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
