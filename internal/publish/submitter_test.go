package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/pkg/schema"
)

func TestHTTPSubmitter_SubmitSteps(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := NewHTTPSubmitter(srv.URL)
	steps := []schema.CampaignStep{{
		ID:         "n1",
		CampaignID: "camp-1",
		Type:       schema.NodeTypeAction,
		Name:       "Email",
		Edges:      []schema.StepEdge{},
	}}
	require.NoError(t, sub.SubmitSteps(context.Background(), "camp-1", steps))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/campaigns/camp-1/steps", gotPath)
	assert.Equal(t, "application/json", gotContentType)

	var sent []schema.CampaignStep
	require.NoError(t, json.Unmarshal(gotBody, &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "n1", sent[0].ID)
}

func TestHTTPSubmitter_BackendRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"bad steps"}`))
	}))
	defer srv.Close()

	sub := NewHTTPSubmitter(srv.URL)
	err := sub.SubmitSteps(context.Background(), "camp-1", nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeStore, schema.CodeOf(err))
	assert.Contains(t, err.Error(), "bad steps")
}

func TestHTTPSubmitter_ConnectionRefused(t *testing.T) {
	sub := NewHTTPSubmitter("http://127.0.0.1:1")
	err := sub.SubmitSteps(context.Background(), "camp-1", nil)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeStore, schema.CodeOf(err))
}
