package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papyr-dev/papyr-store/internal/access"
	"github.com/papyr-dev/papyr-store/internal/auth"
	"github.com/papyr-dev/papyr-store/internal/logger"
	"github.com/papyr-dev/papyr-store/internal/store"
	"github.com/papyr-dev/papyr-store/internal/vault"
	"github.com/papyr-dev/papyr-store/pkg/schema"
)

type testEnv struct {
	router *gin.Engine
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	storage := store.NewMemStore(map[string]map[string]schema.Record{
		"books": {
			"b1": {"title": "The Hobbit", "genre": "fantasy", "year": float64(1937)},
			"b2": {"title": "Dune", "genre": "scifi", "year": float64(1965)},
			"b3": {"title": "Neuromancer", "genre": "scifi", "year": float64(1984)},
		},
	})
	protected := store.NewMemStore(nil)
	manager := auth.NewManager(protected, vault.New("test secret"), "email", logger.Discard())

	h := &Handler{
		Storage:   storage,
		Protected: protected,
		Auth:      manager,
		Access:    access.NewResolver(access.DefaultRuleSet()),
		Flags:     NewFlags(false),
		Log:       logger.Discard(),
	}
	return &testEnv{router: NewRouter(h)}
}

type requestOpts struct {
	token string
	admin bool
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.token != "" {
		req.Header.Set("X-Authorization", opts.token)
	}
	if opts.admin {
		req.Header.Set("X-Admin", "true")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// register creates a user through the API and returns its record (with
// accessToken) for follow-up requests.
func (e *testEnv) register(t *testing.T, email string) schema.Record {
	t.Helper()
	w := e.do(t, http.MethodPost, "/users/register",
		schema.Record{"email": email, "password": "s3cret"}, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	return decode[schema.Record](t, w)
}

func token(user schema.Record) string {
	return user["accessToken"].(string)
}

func TestListCollections(t *testing.T) {
	e := newTestEnv()
	w := e.do(t, http.MethodGet, "/data", nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"books"}, decode[[]string](t, w))
}

func TestGetData_List(t *testing.T) {
	e := newTestEnv()
	w := e.do(t, http.MethodGet, "/data/books", nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]schema.Record](t, w), 3)
}

func TestGetData_Query(t *testing.T) {
	e := newTestEnv()

	path := "/data/books?where=" + url.QueryEscape(`genre="scifi"`) + "&sortBy=" + url.QueryEscape("year desc")
	w := e.do(t, http.MethodGet, path, nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)

	records := decode[[]schema.Record](t, w)
	require.Len(t, records, 2)
	assert.Equal(t, "Neuromancer", records[0]["title"])
	assert.Equal(t, "Dune", records[1]["title"])
}

func TestGetData_Count(t *testing.T) {
	e := newTestEnv()
	w := e.do(t, http.MethodGet, "/data/books?where="+url.QueryEscape(`genre="scifi"`)+"&count", nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Body.String())
}

func TestGetData_BadWhere(t *testing.T) {
	e := newTestEnv()
	w := e.do(t, http.MethodGet, "/data/books?where=broken", nil, requestOpts{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[schema.Record](t, w)
	assert.Equal(t, float64(http.StatusBadRequest), body["code"])
	assert.NotEmpty(t, body["message"])
}

func TestGetData_Single(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodGet, "/data/books/b2", nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dune", decode[schema.Record](t, w)["title"])

	w = e.do(t, http.MethodGet, "/data/books/nope", nil, requestOpts{})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodGet, "/data/missing/b1", nil, requestOpts{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostData(t *testing.T) {
	e := newTestEnv()
	user := e.register(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/data/books",
		schema.Record{"title": "Hyperion", "genre": "scifi"}, requestOpts{token: token(user)})
	require.Equal(t, http.StatusOK, w.Code)

	record := decode[schema.Record](t, w)
	assert.NotEmpty(t, record[schema.FieldID])
	assert.Equal(t, user[schema.FieldID], record[schema.FieldOwnerID])
	assert.Contains(t, record, schema.FieldCreatedOn)
}

func TestPostData_Anonymous(t *testing.T) {
	e := newTestEnv()
	w := e.do(t, http.MethodPost, "/data/books", schema.Record{"title": "x"}, requestOpts{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostData_WithID(t *testing.T) {
	e := newTestEnv()
	user := e.register(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/data/books/b1", schema.Record{"title": "x"}, requestOpts{token: token(user)})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Use PUT to update records", decode[schema.Record](t, w)["message"])
}

func TestPostData_NonObjectBody(t *testing.T) {
	e := newTestEnv()
	user := e.register(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/data/books", []string{"not", "an", "object"}, requestOpts{token: token(user)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOwnership(t *testing.T) {
	e := newTestEnv()
	alice := e.register(t, "alice@example.com")
	bob := e.register(t, "bob@example.com")

	w := e.do(t, http.MethodPost, "/data/books",
		schema.Record{"title": "Hyperion"}, requestOpts{token: token(alice)})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[schema.Record](t, w)[schema.FieldID].(string)

	// another user cannot update or delete
	w = e.do(t, http.MethodPatch, "/data/books/"+id, schema.Record{"title": "stolen"}, requestOpts{token: token(bob)})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodDelete, "/data/books/"+id, nil, requestOpts{token: token(bob)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// anonymous writers get 401 instead
	w = e.do(t, http.MethodDelete, "/data/books/"+id, nil, requestOpts{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the owner can do both
	w = e.do(t, http.MethodPatch, "/data/books/"+id, schema.Record{"title": "mine"}, requestOpts{token: token(alice)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mine", decode[schema.Record](t, w)["title"])

	w = e.do(t, http.MethodDelete, "/data/books/"+id, nil, requestOpts{token: token(alice)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[schema.Record](t, w), schema.FieldDeletedOn)
}

func TestAdminBypass(t *testing.T) {
	e := newTestEnv()
	alice := e.register(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/data/books",
		schema.Record{"title": "Hyperion"}, requestOpts{token: token(alice)})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[schema.Record](t, w)[schema.FieldID].(string)

	// the admin header bypasses ownership, even without a token
	w = e.do(t, http.MethodDelete, "/data/books/"+id, nil, requestOpts{admin: true})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPutReplacesPatchMerges(t *testing.T) {
	e := newTestEnv()
	alice := e.register(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/data/books",
		schema.Record{"title": "Hyperion", "genre": "scifi"}, requestOpts{token: token(alice)})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[schema.Record](t, w)[schema.FieldID].(string)

	w = e.do(t, http.MethodPatch, "/data/books/"+id, schema.Record{"year": float64(1989)}, requestOpts{token: token(alice)})
	require.Equal(t, http.StatusOK, w.Code)
	merged := decode[schema.Record](t, w)
	assert.Equal(t, "Hyperion", merged["title"])
	assert.Equal(t, float64(1989), merged["year"])

	w = e.do(t, http.MethodPut, "/data/books/"+id, schema.Record{"title": "Hyperion, 2nd ed."}, requestOpts{token: token(alice)})
	require.Equal(t, http.StatusOK, w.Code)
	replaced := decode[schema.Record](t, w)
	assert.Equal(t, "Hyperion, 2nd ed.", replaced["title"])
	assert.NotContains(t, replaced, "year")
	assert.Equal(t, alice[schema.FieldID], replaced[schema.FieldOwnerID])
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv()
	user := e.register(t, "alice@example.com")

	// me
	w := e.do(t, http.MethodGet, "/users/me", nil, requestOpts{token: token(user)})
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[schema.Record](t, w)
	assert.Equal(t, "alice@example.com", me["email"])
	assert.NotContains(t, me, "hashedPassword")

	w = e.do(t, http.MethodGet, "/users/me", nil, requestOpts{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// logout returns an empty 204
	w = e.do(t, http.MethodGet, "/users/logout", nil, requestOpts{token: token(user)})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	// the token is dead afterwards
	w = e.do(t, http.MethodGet, "/users/me", nil, requestOpts{token: token(user)})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv()
	e.register(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/users/login",
		schema.Record{"email": "alice@example.com", "password": "wrong"}, requestOpts{})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Login or password don't match", decode[schema.Record](t, w)["message"])
}

func TestRegister_Duplicate(t *testing.T) {
	e := newTestEnv()
	e.register(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/users/register",
		schema.Record{"email": "alice@example.com", "password": "x"}, requestOpts{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJSONStore(t *testing.T) {
	e := newTestEnv()

	// no auth needed anywhere on the jsonstore service
	w := e.do(t, http.MethodPost, "/jsonstore/notes", schema.Record{"text": "hi"}, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[schema.Record](t, w)[schema.FieldID].(string)

	w = e.do(t, http.MethodGet, "/jsonstore/notes/"+id, nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", decode[schema.Record](t, w)["text"])

	w = e.do(t, http.MethodDelete, "/jsonstore/notes/"+id, nil, requestOpts{})
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodGet, "/jsonstore/notes/"+id, nil, requestOpts{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUtilFlags(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodGet, "/util/throttle", nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Body.String())

	w = e.do(t, http.MethodPost, "/util", schema.Record{"throttle": true}, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/util/throttle", nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Body.String())
}

func TestUnknownService(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodGet, "/bogus/books", nil, requestOpts{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `Service "bogus" is not supported`, decode[schema.Record](t, w)["message"])
}

func TestKnownServiceUnknownAction(t *testing.T) {
	e := newTestEnv()

	// a known service with no matching action resolves to an empty 204
	w := e.do(t, http.MethodDelete, "/users/register", nil, requestOpts{})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodOptions, "/data/books", nil, requestOpts{})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Authorization")
}

func TestAdminAssets(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodGet, "/admin", nil, requestOpts{})
	assert.Equal(t, http.StatusFound, w.Code)

	w = e.do(t, http.MethodGet, "/admin/", nil, requestOpts{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = e.do(t, http.MethodGet, "/favicon.ico", nil, requestOpts{})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBadTokenFailsRequest(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodGet, "/data/books", nil, requestOpts{token: "bogus"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid access token", decode[schema.Record](t, w)["message"])
}
