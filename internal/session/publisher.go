package session

import (
	"context"
	"time"

	"github.com/richxcame/navigator/internal/guidance"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/eventbus"
	"github.com/richxcame/navigator/pkg/logger"
	ws "github.com/richxcame/navigator/pkg/websocket"
	"go.uber.org/zap"
)

const (
	eventSource = "navigator"

	// websocket frame types
	MessageEvent     = "event"
	MessageUtterance = "utterance"
	MessageSnapshot  = "snapshot"
	MessageCancelled = "cancelled"
	MessageError     = "error"
	MessageFix       = "fix"
)

// Publisher sends events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// Broadcaster pushes frames to the websocket clients following a session.
type Broadcaster interface {
	SendToSession(sessionID string, msg *ws.Message) bool
	CloseSession(sessionID string)
}

// fanout delivers session output to the bus and the websocket room. Both
// sinks are optional and failures never reach the caller.
type fanout struct {
	bus Publisher
	hub Broadcaster
}

func (f fanout) publish(ctx context.Context, subject string, data interface{}) {
	if f.bus == nil {
		return
	}
	event, err := eventbus.NewEvent(subject, eventSource, data)
	if err == nil {
		err = f.bus.Publish(ctx, subject, event)
	}
	if err != nil {
		publishFailuresTotal.WithLabelValues("nats").Inc()
		logger.WithContext(ctx).Warn("failed to publish navigation event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func (f fanout) broadcast(ctx context.Context, sessionID, msgType string, data interface{}) {
	if f.hub == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, sessionID, data)
	if err == nil && !f.hub.SendToSession(sessionID, msg) {
		publishFailuresTotal.WithLabelValues("websocket").Inc()
		return
	}
	if err != nil {
		logger.WithContext(ctx).Warn("failed to encode websocket frame", zap.Error(err))
	}
}

func (f fanout) started(ctx context.Context, v View, route navigation.Route) {
	dest := route.Destination()
	f.publish(ctx, eventbus.SubjectSessionStarted, eventbus.SessionStartedData{
		SessionID:       v.ID,
		Steps:           len(route.Steps),
		DistanceMeters:  route.Distance.Meters,
		DurationSeconds: route.Duration.Seconds,
		DestinationLat:  dest.Latitude,
		DestinationLng:  dest.Longitude,
		Summary:         route.Summary,
		StartedAt:       v.CreatedAt,
	})
}

func (f fanout) events(ctx context.Context, v View, events []navigation.Event, utterances []guidance.Utterance) {
	for _, e := range events {
		eventsTotal.WithLabelValues(string(e.Kind)).Inc()
		data := eventbus.NavigationEventData{
			SessionID:      v.ID,
			Kind:           string(e.Kind),
			Instruction:    e.Instruction,
			DistanceMeters: e.DistanceMeters,
			StepIndex:      e.StepIndex,
			H3Cell:         v.H3Cell,
			OccurredAt:     e.At,
		}
		f.publish(ctx, eventbus.SubjectFor(string(e.Kind)), data)
		f.broadcast(ctx, v.ID, MessageEvent, data)
	}
	for _, u := range utterances {
		data := eventbus.UtteranceData{
			SessionID: v.ID,
			Kind:      string(u.Kind),
			Text:      u.Text,
			StepIndex: u.StepIndex,
		}
		f.publish(ctx, eventbus.SubjectUtterance, data)
		f.broadcast(ctx, v.ID, MessageUtterance, data)
	}
	if len(events) > 0 || len(utterances) > 0 {
		f.broadcast(ctx, v.ID, MessageSnapshot, v)
	}
}

func (f fanout) cancelled(ctx context.Context, v View, reason string, at time.Time) {
	data := eventbus.SessionCancelledData{
		SessionID:   v.ID,
		Reason:      reason,
		StepIndex:   v.StepIndex,
		CancelledAt: at,
	}
	f.publish(ctx, eventbus.SubjectCancelled, data)
	f.broadcast(ctx, v.ID, MessageCancelled, data)
}

func (f fanout) closeRoom(sessionID string) {
	if f.hub != nil {
		f.hub.CloseSession(sessionID)
	}
}
