package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"family"}`))

	var dest struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(r, &dest))
	assert.Equal(t, "family", dest.Name)
}

func TestParseJSONOrError_BadBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	var dest map[string]any
	ok := ParseJSONOrError(w, r, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathInt64(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest("GET", "/access/profiles/42", nil),
		map[string]string{"id": "42"})

	id, err := ParsePathInt64(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParsePathInt64(r, "missing")
	assert.Error(t, err)

	r = mux.SetURLVars(httptest.NewRequest("GET", "/access/profiles/x", nil),
		map[string]string{"id": "x"})
	_, err = ParsePathInt64(r, "id")
	assert.Error(t, err)
}

func TestParsePathInt64OrError(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest("GET", "/access/profiles/x", nil),
		map[string]string{"id": "x"})
	w := httptest.NewRecorder()

	_, ok := ParsePathInt64OrError(w, r, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?page=3", nil)

	page, err := ParseQueryInt(r, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	size, err := ParseQueryInt(r, "page_size", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, size)

	r = httptest.NewRequest("GET", "/?page=x", nil)
	_, err = ParseQueryInt(r, "page", 1)
	assert.Error(t, err)
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest("GET", "/?this_day=true", nil)

	v, err := ParseQueryBool(r, "this_day", false)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseQueryBool(r, "is_bw", false)
	require.NoError(t, err)
	assert.False(t, v)
}
