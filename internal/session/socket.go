package session

import (
	"context"
	"encoding/json"

	"github.com/richxcame/navigator/pkg/logger"
	"github.com/richxcame/navigator/pkg/validation"
	ws "github.com/richxcame/navigator/pkg/websocket"
	"go.uber.org/zap"
)

// RegisterSocketHandlers lets websocket clients submit fixes for the session
// they follow. Results reach the room through the normal broadcast; the
// sender only gets a direct frame when its fix is refused.
func (s *Service) RegisterSocketHandlers(hub *ws.Hub) {
	hub.RegisterHandler(MessageFix, s.handleSocketFix)
}

func (s *Service) handleSocketFix(client *ws.Client, msg *ws.Message) {
	sessionID := client.Session()
	ctx := logger.ContextWithSessionID(context.Background(), sessionID)

	var req FixRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		replyError(client, sessionID, "invalid fix payload")
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		replyError(client, sessionID, err.Error())
		return
	}

	result, err := s.SubmitFix(ctx, sessionID, req)
	if err != nil {
		replyError(client, sessionID, err.Error())
		return
	}
	if !result.Accepted {
		replyError(client, sessionID, result.Reason)
	}
}

func replyError(client *ws.Client, sessionID, reason string) {
	msg, err := ws.NewMessage(MessageError, sessionID, map[string]string{"message": reason})
	if err != nil {
		return
	}
	if !client.SendMessage(msg) {
		logger.WithSession(sessionID).Debug("could not deliver websocket error", zap.String("client_id", client.ID))
	}
}
