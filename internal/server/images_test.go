package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-gallery/internal/assets"
)

func TestListImagesIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Seed("a", "b", "c")

	rr := env.doJSON(t, http.MethodGet, "/images", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]assets.Asset](t, rr)
	assert.Equal(t, []string{"a", "b", "c"}, ids(list))
	for _, a := range list {
		assert.NotEmpty(t, a.URL)
	}
}

func TestListImagesEmpty(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, http.MethodGet, "/images", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestListImagesStoreFailure(t *testing.T) {
	env := newTestEnv(t, withStore(func(assets.Store) assets.Store { return failingStore{} }))
	rr := env.doJSON(t, http.MethodGet, "/images", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Error fetching images"}`, rr.Body.String())
}

func TestMoveImage(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Seed("A", "B", "C", "D")
	c := env.login(t)
	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodGet, "/images", nil).Code)

	rr := env.doJSON(t, http.MethodPost, "/images/move", map[string]int{"fromIndex": 0, "toIndex": 2}, c)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"B", "C", "A", "D"}, ids(decode[[]assets.Asset](t, rr)))
	assert.Equal(t, 1, env.sub.count())

	// The new order is what every viewer sees next.
	rr = env.doJSON(t, http.MethodGet, "/images", nil)
	assert.Equal(t, []string{"B", "C", "A", "D"}, ids(decode[[]assets.Asset](t, rr)))
}

func TestMoveImageRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Seed("A", "B", "C", "D")
	c := env.login(t)
	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodGet, "/images", nil).Code)

	tests := []struct {
		name string
		body any
	}{
		{"from out of range", map[string]int{"fromIndex": 5, "toIndex": 0}},
		{"to out of range", map[string]int{"fromIndex": 0, "toIndex": 4}},
		{"negative", map[string]int{"fromIndex": -1, "toIndex": 0}},
		{"missing toIndex", map[string]int{"fromIndex": 0}},
		{"string index", `{"fromIndex":"0","toIndex":1}`},
		{"malformed", `{"fromIndex":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doJSON(t, http.MethodPost, "/images/move", tt.body, c)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}

	assert.Equal(t, 0, env.sub.count())
	rr := env.doJSON(t, http.MethodGet, "/images", nil)
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids(decode[[]assets.Asset](t, rr)))
}

func TestDeleteImage(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Seed("a", "b", "c")
	c := env.login(t)

	rr := env.doJSON(t, http.MethodDelete, "/images/b", nil, c)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"a", "c"}, ids(decode[[]assets.Asset](t, rr)))
	assert.Equal(t, 1, env.sub.count())
	assert.Equal(t, int64(1), env.srv.metrics.Snapshot().DeletesTotal)

	_, _, found := env.mem.Object("b")
	assert.False(t, found)
}

func TestDeleteUnknownImage(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Seed("a")
	c := env.login(t)

	rr := env.doJSON(t, http.MethodDelete, "/images/missing", nil, c)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"a"}, ids(decode[[]assets.Asset](t, rr)))
}

func TestDeleteImageInvalidID(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t)

	rr := env.doJSON(t, http.MethodDelete, "/images/bad.id", nil, c)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, env.sub.count())
}

func TestDeleteImageStoreFailure(t *testing.T) {
	env := newTestEnv(t, withStore(func(assets.Store) assets.Store { return failingStore{} }))
	c := env.login(t)

	rr := env.doJSON(t, http.MethodDelete, "/images/a", nil, c)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Error deleting image"}`, rr.Body.String())
	assert.Equal(t, 0, env.sub.count())
}

func TestMoveCountsStaleIDs(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Seed("A", "B", "C", "D")
	c := env.login(t)
	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodGet, "/images", nil).Code)

	// B disappears from the store without going through the gallery.
	env.mem.Remove("B")
	rr := env.doJSON(t, http.MethodGet, "/images", nil)
	require.Equal(t, []string{"A", "C", "D"}, ids(decode[[]assets.Asset](t, rr)))
	assert.Equal(t, []string{"A", "B", "C", "D"}, env.srv.gallery.Order().IDs())

	// Index 3 is past the listing but inside the order, which still holds B.
	rr = env.doJSON(t, http.MethodPost, "/images/move", map[string]int{"fromIndex": 0, "toIndex": 3}, c)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"C", "D", "A"}, ids(decode[[]assets.Asset](t, rr)))
	assert.Equal(t, []string{"B", "C", "D", "A"}, env.srv.gallery.Order().IDs())

	// Index 4 is outside the order.
	rr = env.doJSON(t, http.MethodPost, "/images/move", map[string]int{"fromIndex": 0, "toIndex": 4}, c)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
