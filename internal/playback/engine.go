package playback

import (
	"context"
	"fmt"

	"github.com/beat22/storefront-core/internal/catalog"
	"github.com/beat22/storefront-core/internal/media"
	"github.com/beat22/storefront-core/internal/prefs"
	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
	"github.com/beat22/storefront-core/pkg/logger"
	"github.com/beat22/storefront-core/pkg/metrics"
)

// Session is the engine's transport state. There is exactly one per engine
// and it is never persisted.
type Session struct {
	ActiveTrack     *catalog.Track
	PositionSeconds float64
	DurationSeconds float64
	Volume          float64
	Playing         bool
}

// Listener receives transport notifications. Callbacks run synchronously on
// the mutating call.
type Listener interface {
	TrackChanged(track catalog.Track)
	StateChanged(playing bool)
}

// Engine drives the single active audio session. It is not safe for
// concurrent use; callers serialize access the way a UI event loop does.
type Engine struct {
	resolver media.Resolver
	prefs    *prefs.Store
	logg     *logger.Logger
	metrics  *metrics.PlaybackMetrics

	listeners []Listener
	session   Session
}

// NewEngine builds an idle engine. The initial volume comes from the stored
// preferences record.
func NewEngine(ctx context.Context, resolver media.Resolver, prefsStore *prefs.Store, logg *logger.Logger, playback *metrics.PlaybackMetrics) (*Engine, error) {
	if resolver == nil {
		return nil, fmt.Errorf("media resolver required")
	}
	if prefsStore == nil {
		return nil, fmt.Errorf("preferences store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{
		resolver: resolver,
		prefs:    prefsStore,
		logg:     logg,
		metrics:  playback,
		session: Session{
			Volume: prefsStore.Load(ctx).Volume,
		},
	}, nil
}

// AddListener subscribes to transport notifications.
func (e *Engine) AddListener(listener Listener) {
	if listener != nil {
		e.listeners = append(e.listeners, listener)
	}
}

// Session returns a copy of the transport state.
func (e *Engine) Session() Session {
	session := e.session
	if session.ActiveTrack != nil {
		track := *session.ActiveTrack
		session.ActiveTrack = &track
	}
	return session
}

// Play starts the given track. Calling it with the track that is already
// active toggles playback instead, matching the click-same-row affordance.
// A different track replaces the session: position resets, media resolves,
// and TrackChanged fires once.
func (e *Engine) Play(ctx context.Context, track catalog.Track) error {
	if e.session.ActiveTrack != nil && e.session.ActiveTrack.ID == track.ID {
		if e.session.Playing {
			e.Pause()
			return nil
		}
		e.Resume(ctx)
		return nil
	}
	return e.start(ctx, track)
}

// start replaces the active track unconditionally. A resolution failure
// leaves the session not-playing. Whatever the resolver reports, callers see
// MediaUnavailable; the resolver's own error vocabulary stays behind the
// port.
func (e *Engine) start(ctx context.Context, track catalog.Track) error {
	source, err := e.resolver.Resolve(ctx, track.ID)
	if err != nil {
		e.metrics.IncMediaFailure()
		e.logg.Warn(e.logg.WithTrackID(ctx, track.ID), "media resolution failed")
		e.Pause()
		if !pkgerrors.HasCode(err, pkgerrors.CodeMediaUnavailable) {
			return pkgerrors.Wrap(pkgerrors.CodeMediaUnavailable, err, fmt.Sprintf("no playable media for track %d", track.ID))
		}
		return err
	}

	active := track
	e.session.ActiveTrack = &active
	e.session.PositionSeconds = 0
	e.session.DurationSeconds = source.DurationSeconds
	e.session.Playing = true
	e.metrics.IncTrackChange()

	e.notifyTrackChanged(active)
	e.notifyStateChanged(true)
	return nil
}

// Pause stops playback. No-op when already paused.
func (e *Engine) Pause() {
	if !e.session.Playing {
		return
	}
	e.session.Playing = false
	e.notifyStateChanged(false)
}

// Resume restarts playback of the active track. It fails silently when there
// is no active track or its media cannot be resolved, leaving the session
// paused.
func (e *Engine) Resume(ctx context.Context) {
	if e.session.Playing {
		return
	}
	if e.session.ActiveTrack == nil {
		e.logg.Warn(ctx, "resume requested with no active track")
		return
	}
	if _, err := e.resolver.Resolve(ctx, e.session.ActiveTrack.ID); err != nil {
		e.metrics.IncMediaFailure()
		e.logg.Warn(e.logg.WithTrackID(ctx, e.session.ActiveTrack.ID), "cannot resume, media unavailable")
		return
	}
	e.session.Playing = true
	e.notifyStateChanged(true)
}

// Seek moves the playhead, clamping out-of-range positions instead of
// rejecting them.
func (e *Engine) Seek(positionSeconds float64) {
	if positionSeconds < 0 {
		positionSeconds = 0
	}
	if positionSeconds > e.session.DurationSeconds {
		positionSeconds = e.session.DurationSeconds
	}
	e.session.PositionSeconds = positionSeconds
}

// SetVolume clamps the value to [0,1] and persists it as the preferred
// volume. A persistence failure keeps the in-session volume and logs.
func (e *Engine) SetVolume(ctx context.Context, volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	e.session.Volume = volume

	if err := e.prefs.Save(ctx, prefs.Preferences{Volume: volume}); err != nil {
		e.logg.Error(ctx, "persisting volume preference", err)
	}
}

// Next starts the track after the active one in the supplied playlist,
// wrapping from last to first. No-op when the playlist is empty or the
// active track is not in it.
func (e *Engine) Next(ctx context.Context, playlist []catalog.Track) error {
	return e.skip(ctx, playlist, 1)
}

// Previous starts the track before the active one, wrapping from first to
// last. Same no-op fallback as Next.
func (e *Engine) Previous(ctx context.Context, playlist []catalog.Track) error {
	return e.skip(ctx, playlist, -1)
}

func (e *Engine) skip(ctx context.Context, playlist []catalog.Track, step int) error {
	if len(playlist) == 0 || e.session.ActiveTrack == nil {
		return nil
	}
	index := -1
	for i, track := range playlist {
		if track.ID == e.session.ActiveTrack.ID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil
	}
	target := playlist[(index+step+len(playlist))%len(playlist)]
	return e.start(ctx, target)
}

// Advance moves the clock by dt seconds while playing. Reaching the end of
// the track stops playback and rewinds; the next track is never started
// automatically. A zero duration means the length is unknown: the position
// keeps advancing and natural termination never fires, since there is no
// endpoint to terminate at.
func (e *Engine) Advance(dtSeconds float64) {
	if !e.session.Playing || dtSeconds <= 0 {
		return
	}
	e.session.PositionSeconds += dtSeconds
	if e.session.DurationSeconds > 0 && e.session.PositionSeconds >= e.session.DurationSeconds {
		e.session.PositionSeconds = 0
		e.session.Playing = false
		e.notifyStateChanged(false)
	}
}

func (e *Engine) notifyTrackChanged(track catalog.Track) {
	for _, listener := range e.listeners {
		listener.TrackChanged(track)
	}
}

func (e *Engine) notifyStateChanged(playing bool) {
	for _, listener := range e.listeners {
		listener.StateChanged(playing)
	}
}
