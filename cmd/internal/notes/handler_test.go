package notes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"notes/cmd/internal/auth/session"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asUser stands in for the bearer middleware: it trusts the X-Test-User header.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get("X-Test-User"); v != "" {
			id, _ := strconv.ParseInt(v, 10, 64)
			r = r.WithContext(session.WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewMemoryStore(), 0)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(asUser)
	h.Routes(r)
	return r
}

func call(t *testing.T, router http.Handler, user int64, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != 0 {
		req.Header.Set("X-Test-User", strconv.FormatInt(user, 10))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNotesAPI_CRUD(t *testing.T) {
	router := newTestRouter(t)

	rec := call(t, router, alice, http.MethodPost, "/notes", `{"title":"t1","body":"b1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "t1", created["title"])
	assert.Equal(t, "b1", created["body"])
	assert.NotContains(t, created, "userId")
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rec = call(t, router, alice, http.MethodGet, "/notes/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", decode[Note](t, rec).Title)

	rec = call(t, router, alice, http.MethodPut, "/notes/"+id, `{"title":"t2","body":"b2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t2", decode[Note](t, rec).Title)

	rec = call(t, router, alice, http.MethodDelete, "/notes/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"message": "Note deleted successfully"}, decode[map[string]string](t, rec))

	rec = call(t, router, alice, http.MethodGet, "/notes/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]string{"error": "Note not found"}, decode[map[string]string](t, rec))
}

func TestNotesAPI_OtherUsersNotesAreInvisible(t *testing.T) {
	router := newTestRouter(t)

	rec := call(t, router, alice, http.MethodPost, "/notes", `{"title":"mine","body":""}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := strconv.FormatInt(decode[Note](t, rec).ID, 10)

	assert.Equal(t, http.StatusNotFound, call(t, router, bob, http.MethodGet, "/notes/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, call(t, router, bob, http.MethodPut, "/notes/"+id, `{"title":"x","body":"y"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(t, router, bob, http.MethodDelete, "/notes/"+id, "").Code)

	rec = call(t, router, bob, http.MethodGet, "/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]Note](t, rec))
}

func TestNotesAPI_ListPagination(t *testing.T) {
	router := newTestRouter(t)
	for i := 0; i < 30; i++ {
		require.Equal(t, http.StatusCreated, call(t, router, alice, http.MethodPost, "/notes", `{"title":"n","body":"b"}`).Code)
	}

	rec := call(t, router, alice, http.MethodGet, "/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]Note](t, rec), DefaultLimit)

	rec = call(t, router, alice, http.MethodGet, "/notes?offset=25&limit=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]Note](t, rec), 5)

	for _, q := range []string{"?limit=51", "?limit=0", "?offset=-1", "?limit=abc"} {
		rec = call(t, router, alice, http.MethodGet, "/notes"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestNotesAPI_BadInput(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []string{"", "{", `{"title":"only"}`, `{"title":"t","body":"b","x":1}`} {
		rec := call(t, router, alice, http.MethodPost, "/notes", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, http.StatusBadRequest, call(t, router, alice, http.MethodGet, "/notes/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(t, router, alice, http.MethodGet, "/notes/0", "").Code)
}

func TestNotesAPI_RequiresUser(t *testing.T) {
	router := newTestRouter(t)

	rec := call(t, router, 0, http.MethodGet, "/notes", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
