package session

import (
	"encoding/json"
	"testing"

	ws "github.com/richxcame/navigator/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketClient(sessionID string) *ws.Client {
	client := ws.NewClient("client-1", nil, nil, nil)
	client.SetSession(sessionID)
	return client
}

func fixFrame(t *testing.T, sessionID string, data interface{}) *ws.Message {
	t.Helper()
	msg, err := ws.NewMessage(MessageFix, sessionID, data)
	require.NoError(t, err)
	return msg
}

func errorReason(t *testing.T, client *ws.Client) string {
	t.Helper()
	select {
	case msg := <-client.Send:
		require.Equal(t, MessageError, msg.Type)
		var body map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &body))
		return body["message"]
	default:
		t.Fatal("expected an error frame")
		return ""
	}
}

func TestSocketFix_Accepted(t *testing.T) {
	f := newFixture(t, Config{})
	f.allowPositions()
	view := f.start(t)
	client := socketClient(view.ID)

	f.svc.handleSocketFix(client, fixFrame(t, view.ID, fixAt(pointB, 10)))

	assert.Empty(t, client.Send)
	assert.Equal(t, []string{MessageEvent, MessageEvent, MessageUtterance, MessageSnapshot}, f.hub.Types())

	got, err := f.svc.Get(t.Context(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StepIndex)
}

func TestSocketFix_Errors(t *testing.T) {
	f := newFixture(t, Config{})
	view := f.start(t)

	t.Run("malformed payload", func(t *testing.T) {
		client := socketClient(view.ID)
		f.svc.handleSocketFix(client, &ws.Message{Type: MessageFix, Data: json.RawMessage(`"nope"`)})
		assert.Equal(t, "invalid fix payload", errorReason(t, client))
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		client := socketClient(view.ID)
		f.svc.handleSocketFix(client, fixFrame(t, view.ID, map[string]float64{"latitude": 120, "longitude": 0, "accuracy": 5}))
		assert.Contains(t, errorReason(t, client), "latitude")
	})

	t.Run("rejected fix", func(t *testing.T) {
		client := socketClient(view.ID)
		req := fixAt(pointB, 10)
		req.Accuracy = 0
		f.svc.handleSocketFix(client, fixFrame(t, view.ID, req))
		assert.Contains(t, errorReason(t, client), "accuracy")
	})

	t.Run("unknown session", func(t *testing.T) {
		client := socketClient("missing")
		f.svc.handleSocketFix(client, fixFrame(t, "missing", fixAt(pointB, 10)))
		assert.Equal(t, ErrSessionNotFound.Error(), errorReason(t, client))
	})
}
