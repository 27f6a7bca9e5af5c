package app

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/smallwat3r/pastebin/internal/domain"
	"github.com/smallwat3r/pastebin/internal/metrics"
	"github.com/smallwat3r/pastebin/internal/utility"
	"github.com/smallwat3r/pastebin/web"
)

const (
	msgNotFound = "snippet not found or expired"
	msgDeleted  = "snippet deleted"
)

type Handler struct {
	repo    domain.SnippetRepository
	metrics *metrics.Registry
}

func NewHandler(repo domain.SnippetRepository, m *metrics.Registry) *Handler {
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Handler{repo: repo, metrics: m}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utility.WriteText(w, http.StatusOK, "ok")
}

func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	utility.HttpError(w, http.StatusNotFound, "not found")
}

func (h *Handler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	utility.HttpError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// HandleNew renders an empty page for a freshly generated id. Nothing is
// stored until the page is saved.
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, web.View{ID: domain.GenerateID(), Mode: web.ModeNew})
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(w, r)
	if !ok {
		return
	}

	snippet, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.metrics.SnippetReads.WithLabelValues("miss").Inc()
			utility.HttpError(w, http.StatusNotFound, msgNotFound)
			return
		}
		log.WithFields(log.Fields{"id": id, "err": err}).Error("Failed to read snippet")
		utility.HttpError(w, http.StatusInternalServerError, "failed to read snippet")
		return
	}

	h.metrics.SnippetReads.WithLabelValues("hit").Inc()
	h.render(w, web.View{ID: snippet.ID, Mode: web.ModeEdit, Content: snippet.Content})
}

// HandleSave writes the form-encoded content and expiry to the snippet and
// only answers once the record is on disk. Browsers are sent back to the
// snippet page, other clients get an empty 204.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utility.HttpError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		utility.HttpError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	in, err := domain.ParseWrite(r.PostForm)
	if err != nil {
		utility.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.repo.Put(r.Context(), id, in.Content, in.ExpiryMinutes); err != nil {
		log.WithFields(log.Fields{"id": id, "err": err}).Error("Failed to store snippet")
		utility.HttpError(w, http.StatusInternalServerError, "failed to store snippet")
		return
	}
	h.metrics.SnippetsWritten.Inc()
	log.WithFields(log.Fields{"id": id, "expiry_minutes": in.ExpiryMinutes}).Debug("Stored snippet")

	if wantsHTML(r) {
		http.Redirect(w, r, "/"+id, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			utility.HttpError(w, http.StatusNotFound, msgNotFound)
			return
		}
		log.WithFields(log.Fields{"id": id, "err": err}).Error("Failed to delete snippet")
		utility.HttpError(w, http.StatusInternalServerError, "failed to delete snippet")
		return
	}

	h.metrics.SnippetsDeleted.Inc()
	utility.WriteText(w, http.StatusOK, msgDeleted)
}

// render buffers the page so a template failure still yields a clean 500.
func (h *Handler) render(w http.ResponseWriter, v web.View) {
	var buf bytes.Buffer
	if err := web.Render(&buf, v); err != nil {
		log.WithFields(log.Fields{"id": v.ID, "err": err}).Error("Failed to render page")
		utility.HttpError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// snippetID validates the id route parameter, answering 404 when it is not
// a valid snippet id.
func snippetID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := domain.ValidateID(chi.URLParam(r, "id"))
	if !ok {
		utility.HttpError(w, http.StatusNotFound, domain.ErrInvalidID.Error())
		return "", false
	}
	return id, true
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
