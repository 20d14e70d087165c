package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

func TestCreateMessage(t *testing.T) {
	var gotReq *http.Request
	var gotBody []map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":1,"room_id":"r1","sender_id":"u1","content":"hi","created_at":"2024-05-01T12:00:00Z"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testAPIKey, time.Second)
	msg, err := client.CreateMessage(context.Background(), "r1", "u1", "hi")
	require.NoError(t, err)

	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, "r1", msg.RoomID)
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "2024-05-01T12:00:00Z", msg.CreatedAt)

	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, "/rest/v1/messages", gotReq.URL.Path)
	assert.Equal(t, testAPIKey, gotReq.Header.Get("apikey"))
	assert.Equal(t, "Bearer "+testAPIKey, gotReq.Header.Get("Authorization"))
	assert.Equal(t, "return=representation", gotReq.Header.Get("Prefer"))

	// The insert body is a one-element array
	require.Len(t, gotBody, 1)
	assert.Equal(t, map[string]string{"room_id": "r1", "sender_id": "u1", "content": "hi"}, gotBody[0])
}

func TestCreateMessageRejectedByStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"duplicate key value violates unique constraint"}`, http.StatusConflict)
	}))
	defer server.Close()

	client := NewClient(server.URL, testAPIKey, time.Second)
	_, err := client.CreateMessage(context.Background(), "r1", "u1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 409")
}

func TestCreateMessageEmptyRepresentation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testAPIKey, time.Second)
	_, err := client.CreateMessage(context.Background(), "r1", "u1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no representation")
}

func TestCreateMessageTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testAPIKey, 50*time.Millisecond)
	_, err := client.CreateMessage(context.Background(), "r1", "u1", "hi")
	assert.Error(t, err)
}

func TestFetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
		assert.Equal(t, "nickname", r.URL.Query().Get("select"))
		assert.Equal(t, testAPIKey, r.Header.Get("apikey"))
		w.Write([]byte(`[{"nickname":"Alice"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testAPIKey, time.Second)
	profile, err := client.FetchProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Alice", profile.Nickname)
}

func TestFetchProfileNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testAPIKey, time.Second)
	profile, err := client.FetchProfile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestFetchProfileStoreError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, testAPIKey, time.Second)
	_, err := client.FetchProfile(context.Background(), "u1")
	assert.Error(t, err)
}
