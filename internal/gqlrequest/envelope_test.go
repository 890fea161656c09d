package gqlrequest

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelopePost(t *testing.T) {
	t.Run("decodes JSON body", func(t *testing.T) {
		body := `{"query":"{ users { id } }","operationName":"","variables":{"a":1}}`
		req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		env, err := DecodeEnvelope(req)
		require.NoError(t, err)
		assert.Equal(t, "{ users { id } }", env.Query)
		assert.JSONEq(t, `{"a":1}`, string(env.VariablesRaw))
	})

	t.Run("rewinds the body for downstream handlers", func(t *testing.T) {
		body := `{"query":"{ posts { id } }"}`
		req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		_, err := DecodeEnvelope(req)
		require.NoError(t, err)

		replay, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.Equal(t, body, string(replay))
	})

	t.Run("accepts application/graphql bodies", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{ users { id } }`))
		req.Header.Set("Content-Type", "application/graphql")

		env, err := DecodeEnvelope(req)
		require.NoError(t, err)
		assert.Equal(t, "{ users { id } }", env.Query)
	})

	t.Run("null variables are dropped", func(t *testing.T) {
		body := `{"query":"{ users { id } }","variables":null}`
		req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		env, err := DecodeEnvelope(req)
		require.NoError(t, err)
		assert.Empty(t, env.VariablesRaw)
	})

	t.Run("malformed JSON reports an error", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":`))
		req.Header.Set("Content-Type", "application/json")

		_, err := DecodeEnvelope(req)
		assert.Error(t, err)
	})
}

func TestDecodeEnvelopeGet(t *testing.T) {
	req := httptest.NewRequest("GET", "/graphql?query=%7B+users+%7B+id+%7D+%7D&operationName=Q", nil)

	env, err := DecodeEnvelope(req)
	require.NoError(t, err)
	assert.Equal(t, "{ users { id } }", env.Query)
	assert.Equal(t, "Q", env.OperationName)
	assert.Equal(t, len(env.Query), env.DocumentSizeBytes)
}

func TestDecodeEnvelopeNilRequest(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	assert.Error(t, err)
}
