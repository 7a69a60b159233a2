package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookLogger_DeliversSignedEvent(t *testing.T) {
	var gotBody []byte
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		gotSignature = r.Header.Get("X-Lattice-Signature")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	logger := NewWebhookLogger(server.URL, "hunter2")
	userID := int64(3)
	err := logger.Record(context.Background(), &Event{
		EventType: EventTypeDecision,
		UserID:    &userID,
		Action:    "Cards.View",
		Outcome:   OutcomeAllow,
	})
	require.NoError(t, err)

	assert.True(t, VerifySignature(gotBody, "hunter2", gotSignature))

	var delivered Event
	require.NoError(t, json.Unmarshal(gotBody, &delivered))
	assert.Equal(t, EventTypeDecision, delivered.EventType)
	assert.NotEmpty(t, delivered.EventID)
	assert.False(t, delivered.CreatedAt.IsZero())
}

func TestWebhookLogger_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	logger := NewWebhookLogger(server.URL, "")
	err := logger.Record(context.Background(), &Event{EventType: EventTypeDecision, Outcome: OutcomeError})
	assert.Error(t, err)
}

func TestWebhookLogger_UnreachableCollectorIsError(t *testing.T) {
	logger := NewWebhookLogger("http://127.0.0.1:1", "")
	err := logger.Record(context.Background(), &Event{EventType: EventTypeDecision, Outcome: OutcomeAllow})
	assert.Error(t, err)
}

func TestVerifySignature_RejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"outcome":"allow"}`)
	sig := Sign(payload, "hunter2")

	assert.True(t, VerifySignature(payload, "hunter2", sig))
	assert.False(t, VerifySignature([]byte(`{"outcome":"deny"}`), "hunter2", sig))
	assert.False(t, VerifySignature(payload, "wrong", sig))
}
