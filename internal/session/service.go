package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/navigator/internal/directions"
	"github.com/richxcame/navigator/internal/guidance"
	"github.com/richxcame/navigator/internal/location"
	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
	"github.com/richxcame/navigator/pkg/logger"
	redisclient "github.com/richxcame/navigator/pkg/redis"
	"go.uber.org/zap"
)

// PositionsKey is the Redis GEO index of live traveler positions, one member
// per active session.
const PositionsKey = "navigation:positions"

const (
	defaultMaxActive = 1000
	defaultIdleTTL   = 30 * time.Minute
)

// RouteSource fetches routes from a directions provider.
type RouteSource interface {
	GetRoute(ctx context.Context, req directions.Request) (navigation.Route, error)
}

// Config bounds the session registry.
type Config struct {
	MaxActive   int
	IdleTTL     time.Duration
	DefaultMode directions.TravelMode
	Filter      location.Config
	Location    *time.Location // ETA display zone
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for sessions and their engines.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRouteSource enables starting sessions from origin and destination.
func WithRouteSource(routes RouteSource) Option {
	return func(s *Service) { s.routes = routes }
}

// WithPublisher sends session events to the message bus.
func WithPublisher(bus Publisher) Option {
	return func(s *Service) { s.out.bus = bus }
}

// WithBroadcaster pushes session events to websocket clients.
func WithBroadcaster(hub Broadcaster) Option {
	return func(s *Service) { s.out.hub = hub }
}

// WithPositions records live positions in a Redis GEO index.
func WithPositions(positions redisclient.ClientInterface) Option {
	return func(s *Service) { s.positions = positions }
}

type session struct {
	mu        sync.Mutex
	id        string
	mode      directions.TravelMode
	engine    *navigation.Engine
	recorder  *navigation.Recorder
	filter    *location.Filter
	speaker   *guidance.Speaker
	createdAt time.Time
	updatedAt time.Time
	cell      string
}

// view must be called with x.mu held.
func (x *session) view() View {
	return View{
		ID:        x.id,
		Mode:      string(x.mode),
		Voice:     x.speaker.Enabled(),
		CreatedAt: x.createdAt,
		UpdatedAt: x.updatedAt,
		H3Cell:    x.cell,
		Snapshot:  x.engine.Snapshot(),
	}
}

func (x *session) utter(events []navigation.Event) []guidance.Utterance {
	out := []guidance.Utterance{}
	for _, e := range events {
		if u, ok := x.speaker.Utter(e); ok {
			out = append(out, u)
		}
	}
	return out
}

// Service owns the in-memory navigation sessions. Each session has its own
// engine, guarded by the session mutex, so fixes for one session are applied
// and published strictly in arrival order.
type Service struct {
	cfg       Config
	now       func() time.Time
	routes    RouteSource
	out       fanout
	positions redisclient.ClientInterface

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates a session service.
func NewService(cfg Config, opts ...Option) *Service {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = defaultMaxActive
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = directions.ModeDriving
	}

	s := &Service{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a session on the requested route and returns its first view.
func (s *Service) Start(ctx context.Context, req StartRequest) (View, error) {
	if s.Count() >= s.cfg.MaxActive {
		return View{}, ErrSessionLimit
	}

	mode, ok := directions.ParseTravelMode(req.Mode, s.cfg.DefaultMode)
	if !ok {
		mode = s.cfg.DefaultMode
	}
	route, err := s.resolveRoute(ctx, req, mode)
	if err != nil {
		return View{}, err
	}

	id := uuid.New().String()
	now := s.now()
	sess := &session{
		id:        id,
		mode:      mode,
		recorder:  &navigation.Recorder{},
		filter:    location.NewFilter(s.cfg.Filter),
		speaker:   guidance.NewSpeaker(),
		createdAt: now,
		updatedAt: now,
	}
	if req.Voice != nil {
		sess.speaker.SetEnabled(*req.Voice)
	}

	sess.engine, err = navigation.NewEngine(route,
		navigation.WithClock(s.now),
		navigation.WithLogger(logger.WithSession(id)),
		navigation.WithListener(sess.recorder),
		navigation.WithLocation(s.cfg.Location),
	)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxActive {
		s.mu.Unlock()
		return View{}, ErrSessionLimit
	}
	s.sessions[id] = sess
	activeSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	sess.mu.Lock()
	view := sess.view()
	sess.mu.Unlock()

	s.out.started(ctx, view, route)
	sessionLog(ctx, id).Info("navigation session started",
		zap.String("mode", string(mode)),
		zap.Int("steps", view.StepCount),
		zap.Int("distance_meters", view.RemainingDistance.Meters),
	)
	return view, nil
}

func (s *Service) resolveRoute(ctx context.Context, req StartRequest, mode directions.TravelMode) (navigation.Route, error) {
	if req.Route != nil {
		return *req.Route, nil
	}
	if req.Origin == nil || req.Destination == nil {
		return navigation.Route{}, ErrRouteRequired
	}
	if s.routes == nil {
		return navigation.Route{}, ErrDirectionsUnavailable
	}
	return s.routes.GetRoute(ctx, directions.Request{
		Origin:      req.Origin.coordinate(),
		Destination: req.Destination.coordinate(),
		Mode:        mode,
	})
}

// SubmitFix screens a fix and, if accepted, feeds it to the session's
// engine. Rejected fixes are not errors: the result says why.
func (s *Service) SubmitFix(ctx context.Context, id string, req FixRequest) (FixResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return FixResult{}, err
	}
	start := time.Now()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.engine.State() != navigation.StateActive {
		fixesTotal.WithLabelValues("ended").Inc()
		return FixResult{}, navigation.ErrNavigationEnded
	}

	now := s.now()
	fix := req.toFix(now)
	if err := sess.filter.Accept(fix, now); err != nil {
		fixesTotal.WithLabelValues(fixResult(err)).Inc()
		sessionLog(ctx, id).Debug("fix rejected", zap.Error(err))
		return FixResult{
			Reason:     err.Error(),
			Session:    sess.view(),
			Events:     []navigation.Event{},
			Utterances: []guidance.Utterance{},
		}, nil
	}

	if err := sess.engine.OnPositionUpdate(fix); err != nil {
		return FixResult{}, err
	}
	fixesTotal.WithLabelValues(fixResult(nil)).Inc()

	sess.updatedAt = now
	sess.cell = geo.StreetCell(fix.Position)
	events := sess.recorder.Drain()
	if events == nil {
		events = []navigation.Event{}
	}
	utterances := sess.utter(events)
	view := sess.view()

	s.out.events(ctx, view, events, utterances)
	if sess.engine.State() == navigation.StateCompleted {
		s.ended(ctx, sess, endReasonCompleted)
	} else {
		s.trackPosition(ctx, sess.id, fix.Position)
	}

	fixProcessingSeconds.Observe(time.Since(start).Seconds())
	return FixResult{Accepted: true, Session: view, Events: events, Utterances: utterances}, nil
}

// Advance moves the session to its next step without a position check.
func (s *Service) Advance(ctx context.Context, id string) (AdvanceResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return AdvanceResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.engine.ForceAdvanceStep(); err != nil {
		return AdvanceResult{}, err
	}
	sess.updatedAt = s.now()
	events := sess.recorder.Drain()
	view := sess.view()

	s.out.events(ctx, view, events, sess.utter(events))
	sessionLog(ctx, id).Info("navigation step advanced manually",
		zap.Int("step", view.StepIndex+1),
	)
	return AdvanceResult{Session: view, Events: events}, nil
}

// Get returns the current view of a session.
func (s *Service) Get(_ context.Context, id string) (View, error) {
	sess, err := s.get(id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// Route returns the route a session follows.
func (s *Service) Route(_ context.Context, id string) (navigation.Route, error) {
	sess, err := s.get(id)
	if err != nil {
		return navigation.Route{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.Route(), nil
}

// SetVoice mutes or unmutes the session's spoken guidance.
func (s *Service) SetVoice(_ context.Context, id string, enabled bool) (View, error) {
	sess, err := s.get(id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.speaker.SetEnabled(enabled)
	return sess.view(), nil
}

// Cancel stops an active session. The session stays readable until the next
// sweep.
func (s *Service) Cancel(ctx context.Context, id string) (View, error) {
	sess, err := s.get(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.engine.Cancel(); err != nil {
		return View{}, err
	}
	now := s.now()
	sess.updatedAt = now
	view := sess.view()

	s.out.cancelled(ctx, view, endReasonCancelled, now)
	s.ended(ctx, sess, endReasonCancelled)
	return view, nil
}

// Sweep drops finished sessions and cancels sessions idle for longer than
// the configured TTL. It returns how many sessions were dropped.
func (s *Service) Sweep(ctx context.Context, now time.Time) int {
	type dropped struct {
		sess    *session
		expired bool
	}
	var drop []dropped

	s.mu.Lock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		active := sess.engine.State() == navigation.StateActive
		idle := now.Sub(sess.updatedAt) > s.cfg.IdleTTL
		sess.mu.Unlock()

		if !active || idle {
			delete(s.sessions, id)
			drop = append(drop, dropped{sess: sess, expired: active})
		}
	}
	activeSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, d := range drop {
		if d.expired {
			d.sess.mu.Lock()
			if d.sess.engine.Cancel() == nil {
				view := d.sess.view()
				s.out.cancelled(ctx, view, endReasonExpired, now)
				s.ended(ctx, d.sess, endReasonExpired)
			}
			d.sess.mu.Unlock()
		}
		s.out.closeRoom(d.sess.id)
	}

	if len(drop) > 0 {
		logger.WithContext(ctx).Info("navigation sessions swept", zap.Int("count", len(drop)))
	}
	return len(drop)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, s.now())
		}
	}
}

// Nearby lists active sessions within radiusKm of center, nearest first.
func (s *Service) Nearby(ctx context.Context, center geo.Coordinate, radiusKm float64, limit int) ([]NearbySession, error) {
	if s.positions == nil {
		return nil, ErrNearbyUnavailable
	}
	members, err := s.positions.GeoRadius(ctx, PositionsKey, center.Longitude, center.Latitude, radiusKm, limit)
	if err != nil {
		return nil, fmt.Errorf("query live positions: %w", err)
	}

	out := make([]NearbySession, 0, len(members))
	for _, m := range members {
		if !s.has(m.Name) {
			continue
		}
		out = append(out, NearbySession{
			SessionID:  m.Name,
			DistanceKm: m.DistanceKm,
			Position:   geo.Coordinate{Latitude: m.Latitude, Longitude: m.Longitude},
		})
	}
	return out, nil
}

// Count returns the number of sessions held in memory.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) has(id string) bool {
	_, err := s.get(id)
	return err == nil
}

func (s *Service) trackPosition(ctx context.Context, id string, pos geo.Coordinate) {
	if s.positions == nil {
		return
	}
	if err := s.positions.GeoAdd(ctx, PositionsKey, pos.Longitude, pos.Latitude, id); err != nil {
		sessionLog(ctx, id).Warn("failed to record live position", zap.Error(err))
	}
}

// ended records the end of a session. Called once per session, with the
// session mutex held.
func (s *Service) ended(ctx context.Context, sess *session, reason string) {
	sessionsEndedTotal.WithLabelValues(reason).Inc()
	if s.positions != nil {
		if err := s.positions.GeoRemove(ctx, PositionsKey, sess.id); err != nil {
			sessionLog(ctx, sess.id).Warn("failed to remove live position", zap.Error(err))
		}
	}
	sessionLog(ctx, sess.id).Info("navigation session ended", zap.String("reason", reason))
}

func sessionLog(ctx context.Context, id string) *zap.Logger {
	return logger.WithContext(logger.ContextWithSessionID(ctx, id))
}

func isStale(err error) bool             { return errors.Is(err, location.ErrStaleFix) }
func isInaccurate(err error) bool        { return errors.Is(err, location.ErrInaccurateFix) }
func isBelowDisplacement(err error) bool { return errors.Is(err, location.ErrBelowDisplacement) }
