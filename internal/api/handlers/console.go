package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"trip-console/internal/domain"
	"trip-console/internal/services"
	"trip-console/internal/view"
)

type ConsoleHandler struct {
	Console Console
}

// Page renders the HTML console.
func (h *ConsoleHandler) Page(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := view.Render(&buf, view.Build(h.Console.Snapshot())); err != nil {
		log.Printf("render console failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("write console failed: %v", err)
	}
}

// Submit stores every posted field and optionally recalculates, then
// redirects back to the page. Validation problems show up on the page.
func (h *ConsoleHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form body")
		return
	}

	for _, f := range domain.Fields {
		vals, ok := r.PostForm[string(f.Key)]
		if !ok || len(vals) == 0 {
			continue
		}
		if err := h.Console.UpdateField(string(f.Key), vals[0]); err != nil {
			log.Printf("update field failed: field=%s err=%v", f.Key, err)
		}
	}

	if r.PostForm.Get("action") == "recalculate" {
		if _, err := h.Console.Recalculate(); err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) && !errors.Is(err, services.ErrClosed) {
				log.Printf("recalculate failed: %v", err)
			}
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
