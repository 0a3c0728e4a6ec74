package relation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/identity"
	"github.com/NordCoder/Tubely/internal/services/api-gateway/auth"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Kind    apperr.Kind     `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// fakeGate authenticates every request as who, or rejects when who is nil.
func fakeGate(who *identity.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if who == nil {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"kind":"unauthorized","message":"unauthorized access"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), who)))
		})
	}
}

func newRouter(who *identity.Identity) http.Handler {
	r := chi.NewRouter()
	NewServer(nil, New(newMemRelations(), nil, nil, stepClock())).Routes(r, fakeGate(who))
	return r
}

func call(t *testing.T, h http.Handler, method, path string) (int, apiResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var out apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestServerToggleScenario(t *testing.T) {
	me := &identity.Identity{ID: uuid.New(), Handle: "alice"}
	h := newRouter(me)
	video := uuid.NewString()

	code, out := call(t, h, http.MethodPost, "/relations/video-like/"+video+"/toggle")
	require.Equal(t, http.StatusOK, code)
	var res ToggleResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.NotNil(t, res.Created)
	assert.Equal(t, me.ID, res.Created.ActorID)

	code, out = call(t, h, http.MethodGet, "/relations/video-like/"+video+"/count")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":1}`, string(out.Data))

	code, out = call(t, h, http.MethodGet, "/relations/video-like/"+video+"/exists")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"exists":true}`, string(out.Data))

	code, out = call(t, h, http.MethodGet, "/relations/video-like")
	require.Equal(t, http.StatusOK, code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, video, mine[0]["target_id"])

	code, out = call(t, h, http.MethodGet, "/relations/video-like/"+video+"/actors?limit=10&offset=0")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(out.Data), me.ID.String())

	code, out = call(t, h, http.MethodPost, "/relations/video-like/"+video+"/toggle")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"removed":true}`, string(out.Data))

	code, out = call(t, h, http.MethodGet, "/relations/video-like/"+video+"/count")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":0}`, string(out.Data))

	code, out = call(t, h, http.MethodGet, "/relations/video-like")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(out.Data))
}

func TestServerBadRequests(t *testing.T) {
	me := &identity.Identity{ID: uuid.New()}
	h := newRouter(me)

	for _, path := range []string{
		"/relations/video-like/video123/toggle",
		"/relations/unknown/" + uuid.NewString() + "/toggle",
		"/relations/subscription/" + me.ID.String() + "/toggle",
	} {
		code, out := call(t, h, http.MethodPost, path)
		assert.Equal(t, http.StatusBadRequest, code, path)
		assert.Equal(t, apperr.KindBadRequest, out.Kind, path)
	}

	for _, path := range []string{
		"/relations/video-like/video123/count",
		"/relations/video-like?limit=abc",
		"/relations/video-like?offset=-2",
	} {
		code, out := call(t, h, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, code, path)
		assert.Equal(t, apperr.KindBadRequest, out.Kind, path)
	}
}

func TestServerRequiresIdentity(t *testing.T) {
	h := newRouter(nil)
	code, out := call(t, h, http.MethodPost, "/relations/video-like/"+uuid.NewString()+"/toggle")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperr.KindUnauthorized, out.Kind)
}
