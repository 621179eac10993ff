package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gonkalabs/neam-go/internal/app"
	"github.com/gonkalabs/neam-go/internal/markup"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 10 << 20

// Response headers carrying the attestation of rendered markup.
const (
	HeaderRequestID = "X-Request-Id"
	HeaderSignature = "X-Neam-Signature"
	HeaderSigner    = "X-Neam-Signer"
)

// Handler implements all HTTP endpoints.
type Handler struct {
	app *app.App
}

// New creates a Handler serving a.
func New(a *app.App) *Handler {
	return &Handler{app: a}
}

// Register mounts routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /v1/tags", h.listTags)
	mux.HandleFunc("POST /v1/markup", h.markup)
	mux.HandleFunc("POST /v1/annotate", h.annotate)
}

type markupRequest struct {
	Text     string           `json:"text"`
	Mentions []markup.Mention `json:"mentions,omitempty"`
}

type markupResponse struct {
	ID     string `json:"id"`
	Markup string `json:"markup"`
}

type annotateResponse struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Mentions []markup.Mention `json:"mentions"`
}

// ---------- endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) listTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tags": h.app.Tags().Entries(),
	})
}

// markup renders text. With mentions in the request the annotator is not
// called and the document is reconciled as given.
func (h *Handler) markup(w http.ResponseWriter, r *http.Request) {
	id := requestID(w)

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	var out string
	if req.Mentions != nil {
		out = h.app.RenderDocument(markup.Document{Text: req.Text, Mentions: req.Mentions})
	} else {
		var err error
		out, err = h.app.Render(r.Context(), req.Text)
		if err != nil {
			slog.Error("markup: annotator error", "id", id, "err", err)
			writeErr(w, http.StatusBadGateway, "annotator error: "+err.Error())
			return
		}
	}

	sig, addr, signed, err := h.app.Sign(out)
	if err != nil {
		slog.Error("attest: sign error", "id", id, "err", err)
		writeErr(w, http.StatusInternalServerError, "sign error: "+err.Error())
		return
	}
	if signed {
		w.Header().Set(HeaderSignature, sig)
		w.Header().Set(HeaderSigner, addr)
	}

	slog.Info("markup rendered", "id", id, "textLen", len(req.Text), "markupLen", len(out), "preAnnotated", req.Mentions != nil)
	writeJSON(w, http.StatusOK, markupResponse{ID: id, Markup: out})
}

func (h *Handler) annotate(w http.ResponseWriter, r *http.Request) {
	id := requestID(w)

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	doc, err := h.app.Annotate(r.Context(), req.Text)
	if err != nil {
		slog.Error("annotate: annotator error", "id", id, "err", err)
		writeErr(w, http.StatusBadGateway, "annotator error: "+err.Error())
		return
	}

	mentions := doc.Mentions
	if mentions == nil {
		mentions = []markup.Mention{}
	}
	writeJSON(w, http.StatusOK, annotateResponse{ID: id, Text: doc.Text, Mentions: mentions})
}

// ---------- helpers ----------

func requestID(w http.ResponseWriter) string {
	id := uuid.NewString()
	w.Header().Set(HeaderRequestID, id)
	return id
}

// decodeRequest reads a markupRequest, writing a 4xx and returning false
// when the body is unusable.
func decodeRequest(w http.ResponseWriter, r *http.Request) (markupRequest, bool) {
	defer r.Body.Close()

	var req markupRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		writeErr(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErr(w, http.StatusBadRequest, "text is required")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
