package notes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	authapi "notes/cmd/internal/auth/api"
	"notes/cmd/internal/auth/session"

	"github.com/go-chi/chi/v5"
)

const (
	msgNotFound      = "Note not found"
	msgDeleted       = "Note deleted successfully"
	msgInvalidID     = "Invalid note id"
	msgInvalidBody   = "Invalid request body"
	msgInvalidPaging = "Invalid pagination"
	msgUnauthorized  = "Unauthorized"
	msgInternal      = "Internal Server Error"
)

// Handler serves the notes endpoints. Routes expect an upstream middleware to have put the
// authenticated user id in the request context.
type Handler struct {
	log          *slog.Logger
	store        Store
	maxBodyBytes int64
}

func NewHandler(log *slog.Logger, store Store, maxBodyBytes int64) (*Handler, error) {
	if store == nil {
		return nil, errors.New("notes: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{log: log, store: store, maxBodyBytes: maxBodyBytes}, nil
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/notes", h.handleList)
	r.Post("/notes", h.handleCreate)
	r.Get("/notes/{id}", h.handleGet)
	r.Put("/notes/{id}", h.handleUpdate)
	r.Delete("/notes/{id}", h.handleDelete)
}

// noteRequest uses pointers so that a missing field is distinguishable from an empty one.
type noteRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		authapi.WriteError(w, http.StatusBadRequest, msgInvalidPaging)
		return
	}

	list, err := h.store.List(r.Context(), userID, page)
	if err != nil {
		h.internalError(w, "notes.list.fail", userID, err)
		return
	}
	authapi.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	n, err := h.store.Get(r.Context(), userID, id)
	if err != nil {
		h.storeError(w, "notes.get.fail", userID, err)
		return
	}
	authapi.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	n, err := h.store.Create(r.Context(), userID, in)
	if err != nil {
		h.internalError(w, "notes.create.fail", userID, err)
		return
	}
	authapi.WriteJSON(w, http.StatusCreated, n)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	n, err := h.store.Update(r.Context(), userID, id, in)
	if err != nil {
		h.storeError(w, "notes.update.fail", userID, err)
		return
	}
	authapi.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), userID, id); err != nil {
		h.storeError(w, "notes.delete.fail", userID, err)
		return
	}
	authapi.WriteJSON(w, http.StatusOK, map[string]string{"message": msgDeleted})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := session.UserIDFromContext(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
	}
	return id, ok
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req noteRequest
	if err := authapi.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil || req.Title == nil || req.Body == nil {
		authapi.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return Input{}, false
	}
	return Input{Title: *req.Title, Body: *req.Body}, true
}

func (h *Handler) storeError(w http.ResponseWriter, event string, userID int64, err error) {
	if errors.Is(err, ErrNotFound) {
		authapi.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.internalError(w, event, userID, err)
}

func (h *Handler) internalError(w http.ResponseWriter, event string, userID int64, err error) {
	h.log.Error(event, "user_id", userID, "err", err)
	authapi.WriteError(w, http.StatusInternalServerError, msgInternal)
}

func noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		authapi.WriteError(w, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}
	return id, true
}

// parsePage reads offset and limit, defaulting to 0 and DefaultLimit.
func parsePage(r *http.Request) (Page, error) {
	page := Page{Offset: 0, Limit: DefaultLimit}
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Page{}, err
		}
		page.Offset = n
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Page{}, err
		}
		page.Limit = n
	}
	return page, page.Validate()
}
