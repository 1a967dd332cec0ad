package probe

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/happymap/internal/app"
	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/domain/selection"
	"github.com/okian/happymap/internal/domain/trend"
	"github.com/okian/happymap/internal/views/trendview"
)

type created struct {
	ID       string           `json:"id"`
	Controls service.Controls `json:"controls"`
	Frame    service.View     `json:"frame"`
}

// scenario walks one session through every control.
type scenario struct {
	c        *client
	id       string
	controls service.Controls
	checks   *int64
	pushed   int64
	failures []Failure

	mu    sync.Mutex
	ticks []tick
}

// tick is the part of a pushed frame the playback check needs.
type tick struct {
	Seq     uint64 `json:"seq"`
	Trigger string `json:"trigger"`
	Year    int    `json:"year"`
}

func (s *scenario) expect(ok bool, check, format string, args ...any) bool {
	atomic.AddInt64(s.checks, 1)
	if !ok {
		s.failures = append(s.failures, Failure{Session: s.id, Check: check, Detail: fmt.Sprintf(format, args...)})
	}
	return ok
}

func (s *scenario) post(ctx context.Context, op string, body any) (service.View, error) {
	var v service.View
	err := s.c.do(ctx, http.MethodPost, "/api/sessions/"+s.id+"/"+op, body, &v)
	return v, err
}

// consistent checks the status line and view sizes against the slice count.
func (s *scenario) consistent(v service.View, check string) {
	s.expect(v.Status == service.Status(v.Count, v.Year), check, "status %q for %d rows", v.Status, v.Count)
	s.expect(len(v.Scatter.Points) == v.Count, check, "scatter has %d points, slice %d", len(v.Scatter.Points), v.Count)
	s.expect(v.Map != nil && len(v.Map.Features) <= v.Count, check, "map has more markers than rows")
}

// runSession executes the scenario and returns the violated properties.
func runSession(ctx context.Context, c *client, checks, frames *int64) (string, []Failure, error) {
	var cr created
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &cr); err != nil {
		return "", nil, fmt.Errorf("open session: %w", err)
	}
	s := &scenario{c: c, id: cr.ID, controls: cr.Controls, checks: checks}
	defer func() {
		_ = c.do(context.WithoutCancel(ctx), http.MethodDelete, "/api/sessions/"+s.id, nil, nil)
	}()

	conn, err := c.subscribe(ctx, s.id)
	if err != nil {
		return s.id, nil, fmt.Errorf("subscribe: %w", err)
	}
	defer conn.Close()
	go s.count(conn)

	if err := s.run(ctx, cr.Frame); err != nil {
		return s.id, s.failures, err
	}
	pushed := atomic.LoadInt64(&s.pushed)
	atomic.AddInt64(frames, pushed)
	s.expect(pushed > 0, "frames_pushed", "no frame arrived over the websocket")
	return s.id, s.failures, nil
}

// count reads pushed frames and keeps the playback ticks.
func (s *scenario) count(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		atomic.AddInt64(&s.pushed, 1)
		var t tick
		if json.Unmarshal(msg, &t) == nil && t.Trigger == service.TriggerTick {
			s.mu.Lock()
			s.ticks = append(s.ticks, t)
			s.mu.Unlock()
		}
	}
}

// pushedTicks returns the ticks seen so far ordered by sequence number.
// Delivery workers may reorder frames; Seq restores the production order.
func (s *scenario) pushedTicks() []tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.ticks)
	slices.SortFunc(out, func(a, b tick) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}

func (s *scenario) run(ctx context.Context, first service.View) error {
	c := s.controls
	s.expect(first.Year == c.MaxYear, "initial_year", "got %d, want %d", first.Year, c.MaxYear)
	s.expect(first.Region == model.AllRegions, "initial_region", "got %q", first.Region)
	s.expect(!first.Playing && first.PlayLabel == selection.PlayLabel, "initial_playback", "playing=%v label=%q", first.Playing, first.PlayLabel)
	s.consistent(first, "initial_views")
	aggregate := first.Trend.Points

	// Year slider.
	for _, year := range c.Years {
		v, err := s.post(ctx, "year", map[string]int{"year": year})
		if err != nil {
			return fmt.Errorf("year %d: %w", year, err)
		}
		s.expect(v.Year == year, "year_applied", "got %d, want %d", v.Year, year)
		s.expect(v.Trend.Mode == trendview.ModeAggregate, "year_trend_aggregate", "mode %q", v.Trend.Mode)
		s.consistent(v, "year_views")
	}

	// Region filter.
	for _, region := range c.Regions[1:] {
		v, err := s.post(ctx, "region", map[string]string{"region": region})
		if err != nil {
			return fmt.Errorf("region %q: %w", region, err)
		}
		for _, f := range v.Map.Features {
			s.expect(f.Properties["region"] == region, "region_filter", "%v in %q", f.Properties["country"], region)
		}
		s.consistent(v, "region_views")
	}
	v, err := s.post(ctx, "region", map[string]string{"region": model.AllRegions})
	if err != nil {
		return fmt.Errorf("region all: %w", err)
	}

	// Highlight from the scatter plot, then return to the aggregate.
	if len(v.Scatter.Points) > 0 {
		country := v.Scatter.Points[0].Country
		h, err := s.post(ctx, "select", map[string]string{"country": country, "source": string(service.SourceScatter)})
		if err != nil {
			return fmt.Errorf("select %q: %w", country, err)
		}
		s.expect(h.Trend.Mode == trendview.ModeCountry && h.Trend.Title == trendview.Title(country), "select_trend", "mode %q title %q", h.Trend.Mode, h.Trend.Title)
		s.expect(h.Info != nil && h.Info.Country == country, "select_info", "info %+v", h.Info)
		s.expect(h.Count == v.Count, "select_keeps_slice", "count %d, was %d", h.Count, v.Count)
		s.expect(slices.IsSortedFunc(h.Trend.Points, func(a, b trend.Point) int { return a.Year - b.Year }), "select_trend_sorted", "years out of order")

		back, err := s.post(ctx, "year", map[string]int{"year": v.Year})
		if err != nil {
			return fmt.Errorf("year after select: %w", err)
		}
		s.expect(slices.Equal(back.Trend.Points, aggregate), "aggregate_stable", "aggregate changed after a country excursion")
	}

	// Playback at the fastest speed.
	fastest := slices.Min(c.SpeedsMs)
	if _, err := s.post(ctx, "speed", map[string]int64{"speed_ms": fastest}); err != nil {
		return fmt.Errorf("speed: %w", err)
	}
	if _, err := s.post(ctx, "year", map[string]int{"year": c.MaxYear}); err != nil {
		return fmt.Errorf("year before play: %w", err)
	}
	p, err := s.post(ctx, "play", nil)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	s.expect(p.Playing && p.PlayLabel == selection.PauseLabel, "play_label", "playing=%v label=%q", p.Playing, p.PlayLabel)
	playSeq := p.Seq
	if len(c.Years) > 1 {
		s.waitForTicks(ctx, time.Duration(fastest)*time.Millisecond+PushWait)
	}
	if p, err = s.post(ctx, "play", nil); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	s.expect(!p.Playing, "pause", "still playing")
	if len(c.Years) > 1 {
		// Let in-flight ticks arrive before checking the sequence.
		time.Sleep(100 * time.Millisecond)
		s.checkTicks(playSeq)
	}

	// Reset.
	r, err := s.post(ctx, "reset", nil)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.expect(r.Year == c.MaxYear && r.Region == model.AllRegions && !r.Playing && r.Info == nil, "reset",
		"year %d region %q playing %v info %v", r.Year, r.Region, r.Playing, r.Info != nil)
	return nil
}

// waitForTicks returns once a playback tick was pushed or within elapsed.
func (s *scenario) waitForTicks(ctx context.Context, within time.Duration) {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if len(s.pushedTicks()) > 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// checkTicks verifies playback started at the first year after the last one
// and advanced one year per tick, wrapping at the end.
func (s *scenario) checkTicks(playSeq uint64) {
	ticks := s.pushedTicks()
	if !s.expect(len(ticks) > 0, "play_advances", "no tick within the wait") {
		return
	}
	c := s.controls
	if ticks[0].Seq == playSeq+1 {
		s.expect(ticks[0].Year == c.MinYear, "play_wraps", "after %d came %d, want %d", c.MaxYear, ticks[0].Year, c.MinYear)
	}
	for i := 1; i < len(ticks); i++ {
		want := ticks[i-1].Year + 1
		if want > c.MaxYear {
			want = c.MinYear
		}
		if ticks[i].Seq != ticks[i-1].Seq+1 {
			// A dropped frame breaks the chain; nothing to compare.
			continue
		}
		s.expect(ticks[i].Year == want, "play_step", "tick %d went %d -> %d", ticks[i].Seq, ticks[i-1].Year, ticks[i].Year)
	}
}
