package assertions

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userSchema = `{
  "type": "object",
  "required": ["id", "name"],
  "properties": {
    "id": {"type": "integer"},
    "name": {"type": "string"}
  }
}`

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func jsonHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestCheckJSONSchema(t *testing.T) {
	schema := writeSchema(t, userSchema)

	tests := []struct {
		name    string
		handler http.Handler
		path    string
		passed  bool
		message string
	}{
		{
			name:    "valid document",
			handler: jsonHandler(http.StatusOK, `{"id": 1, "name": "Ada"}`),
			passed:  true,
		},
		{
			name:    "missing field",
			handler: jsonHandler(http.StatusOK, `{"id": 1}`),
			message: "Schema validation failed: (root): name is required",
		},
		{
			name:    "sub-document selected by path",
			handler: jsonHandler(http.StatusOK, `{"data": {"id": 7, "name": "Grace"}}`),
			path:    "data",
			passed:  true,
		},
		{
			name:    "path not found",
			handler: jsonHandler(http.StatusOK, `{"id": 7, "name": "Grace"}`),
			path:    "data",
			message: `path "data" not found in response`,
		},
		{
			name:    "not json",
			handler: jsonHandler(http.StatusOK, `<html></html>`),
			message: "response body is not JSON",
		},
		{
			name:    "non-200",
			handler: jsonHandler(http.StatusInternalServerError, `{}`),
			message: "Received status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSite(t, tt.handler, nil)
			result := s.prober().CheckJSONSchema("api.example.com/users/1", schema, tt.path)
			assert.Equal(t, tt.passed, result.Passed, result.Message)
			assert.NoError(t, result.Err)
			if !tt.passed {
				assert.Equal(t, tt.message, result.Message)
			}
		})
	}
}

func TestCheckJSONSchema_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/", redirectTo(http.StatusMovedPermanently, "/v2/user"))
	mux.Handle("/v2/user", jsonHandler(http.StatusOK, `{"id": 1, "name": "Ada"}`))
	s := newSite(t, mux, nil)

	result := s.prober().CheckJSONSchema("example.com", writeSchema(t, userSchema), "")

	assert.True(t, result.Passed, result.Message)
}

func TestCheckJSONSchema_UnreadableSchema(t *testing.T) {
	s := newSite(t, jsonHandler(http.StatusOK, `{}`), nil)
	p := s.prober()

	t.Run("missing file", func(t *testing.T) {
		result := p.CheckJSONSchema("example.com", filepath.Join(t.TempDir(), "nope.json"), "")
		assert.False(t, result.Passed)
		assert.True(t, errors.Is(result.Err, ErrSchemaUnreadable))
	})

	t.Run("invalid schema", func(t *testing.T) {
		result := p.CheckJSONSchema("example.com", writeSchema(t, `{"type": 12}`), "")
		assert.False(t, result.Passed)
		assert.ErrorIs(t, result.Err, ErrSchemaUnreadable)
	})

	t.Run("empty path", func(t *testing.T) {
		result := p.CheckJSONSchema("example.com", "  ", "")
		assert.ErrorIs(t, result.Err, ErrSchemaUnreadable)
	})
}
