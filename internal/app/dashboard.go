package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/okian/happymap/internal/domain/model"
	"github.com/okian/happymap/internal/domain/selection"
	"github.com/okian/happymap/internal/export"
	"github.com/okian/happymap/internal/views/info"
	"github.com/okian/happymap/internal/views/mapview"
	"github.com/okian/happymap/internal/views/scatter"
	"github.com/okian/happymap/internal/views/trendview"
	"github.com/okian/happymap/pkg/logger"
	"github.com/okian/happymap/pkg/metrics"
)

// Source is the pane a country was clicked in.
type Source string

// Highlight sources.
const (
	SourceMap     Source = "map"
	SourceScatter Source = "scatter"
)

// Redraw triggers, also used as metric labels.
const (
	TriggerSession = "session"
	TriggerYear    = "year"
	TriggerRegion  = "region"
	TriggerTick    = "tick"
	TriggerReset   = "reset"
	TriggerPlay    = "play"
	TriggerSpeed   = "speed"
	TriggerSelect  = "select"
)

// View is one complete dashboard frame.
type View struct {
	Session   string                     `json:"session"`
	Seq       uint64                     `json:"seq"`
	Trigger   string                     `json:"trigger"`
	Year      int                        `json:"year"`
	Region    string                     `json:"region"`
	Playing   bool                       `json:"playing"`
	PlayLabel string                     `json:"play_label"`
	SpeedMs   int64                      `json:"speed_ms"`
	Status    string                     `json:"status"`
	Count     int                        `json:"count"`
	Map       *geojson.FeatureCollection `json:"map"`
	Focus     *mapview.Focus             `json:"focus,omitempty"`
	Scatter   scatter.View               `json:"scatter"`
	Trend     trendview.View             `json:"trend"`
	Info      *info.Card                 `json:"info,omitempty"`
}

// Status formats the line under the controls.
func Status(count, year int) string {
	return fmt.Sprintf("Showing %d countries for year %d", count, year)
}

// Publisher receives every frame a dashboard produces.
type Publisher interface {
	Publish(ctx context.Context, f model.Frame) error
}

// Dashboard is one session: a control panel plus the views derived from it.
// Every operation is serialised on the dashboard's mutex.
type Dashboard struct {
	id        string
	ds        *model.Dataset
	rows      []model.Row
	panel     *selection.Panel
	publisher Publisher
	onClose   func()
	logger    logger.Logger

	mu     sync.Mutex
	seq    uint64
	slice  []model.Row
	view   View
	closed bool
}

func newDashboard(id string, ds *model.Dataset, pub Publisher, onClose func(), log logger.Logger, opts ...selection.Option) *Dashboard {
	d := &Dashboard{
		id:        id,
		ds:        ds,
		rows:      ds.Rows(),
		publisher: pub,
		onClose:   onClose,
		logger:    log.With(logger.String("session", id)),
	}
	opts = append(opts, selection.WithTickHandler(d.tick))
	d.panel = selection.New(ds, opts...)
	return d
}

// ID returns the session id.
func (d *Dashboard) ID() string { return d.id }

// Current returns the last frame.
func (d *Dashboard) Current() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Selection returns the control panel state.
func (d *Dashboard) Selection() selection.Selection {
	return d.panel.Snapshot()
}

// Slice returns a copy of the currently filtered rows.
func (d *Dashboard) Slice() []model.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Row, len(d.slice))
	copy(out, d.slice)
	return out
}

// UpdateAll moves to year and redraws every view from the filtered slice.
// The trend returns to the aggregate series.
func (d *Dashboard) UpdateAll(ctx context.Context, year int) (View, error) {
	return d.redraw(ctx, year, TriggerYear)
}

// SetRegion changes the region filter and redraws at the current year.
func (d *Dashboard) SetRegion(ctx context.Context, region string) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return View{}, ErrDashboardClosed
	}
	if err := d.panel.SetRegion(region); err != nil {
		return View{}, err
	}
	return d.redrawLocked(ctx, d.panel.Snapshot().Year, TriggerRegion)
}

// TogglePlay starts or stops playback. Only the control state changes.
func (d *Dashboard) TogglePlay(ctx context.Context) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return View{}, ErrDashboardClosed
	}
	d.panel.TogglePlay()
	return d.refreshLocked(ctx, TriggerPlay), nil
}

// SetSpeed changes the playback interval. A running timer picks it up the
// next time playback starts.
func (d *Dashboard) SetSpeed(ctx context.Context, speed time.Duration) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return View{}, ErrDashboardClosed
	}
	if err := d.panel.SetSpeed(speed); err != nil {
		return View{}, err
	}
	return d.refreshLocked(ctx, TriggerSpeed), nil
}

// Reset stops playback, shows every region at the last year and clears the
// info card.
func (d *Dashboard) Reset(ctx context.Context) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return View{}, ErrDashboardClosed
	}
	sel := d.panel.Reset()
	d.view.Info = nil
	return d.redrawLocked(ctx, sel.Year, TriggerReset)
}

// HighlightCountry switches the trend to country's history and fills the
// info card from its row in the current slice. A map click also restyles
// the markers and sets the focus. The slice itself is unchanged.
func (d *Dashboard) HighlightCountry(ctx context.Context, country string, source Source) (View, error) {
	if source != SourceMap && source != SourceScatter {
		return View{}, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return View{}, ErrDashboardClosed
	}

	var (
		row   model.Row
		found bool
	)
	for _, r := range d.slice {
		if r.Country == country {
			row, found = r, true
			break
		}
	}
	if !found {
		return View{}, fmt.Errorf("%w: %q", ErrCountryNotFound, country)
	}

	sel := d.panel.Snapshot()
	tv, err := d.renderTrend(sel.Year, country)
	if err != nil {
		return View{}, err
	}
	d.panel.SetHighlighted(country)

	v := d.view
	v.Focus = nil
	v.Trend = tv
	card := info.Render(row)
	v.Info = &card
	if source == SourceMap {
		// Restyle a fresh collection so frames already handed out stay intact.
		fc := mapview.Render(d.slice)
		if focus, ok := mapview.Select(fc, country); ok {
			v.Map = fc
			v.Focus = &focus
		}
	}
	metrics.RecordHighlight(string(source))
	return d.commitLocked(ctx, v, TriggerSelect), nil
}

// Export writes the current slice and trend as a spreadsheet.
func (d *Dashboard) Export(w io.Writer) (string, error) {
	d.mu.Lock()
	data := export.Data{
		Year:       d.view.Year,
		Region:     d.view.Region,
		Rows:       append([]model.Row(nil), d.slice...),
		TrendTitle: d.view.Trend.Title,
		Trend:      d.view.Trend.Points,
	}
	d.mu.Unlock()

	if err := export.Write(w, data); err != nil {
		return "", err
	}
	metrics.RecordExport()
	return data.Filename(), nil
}

// Active reports whether the dashboard is playing. The session store keeps
// active sessions alive while nobody clicks.
func (d *Dashboard) Active() bool {
	return d.panel.Snapshot().Playing
}

// Close stops playback and disconnects subscribers. It is safe to call twice.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.panel.Close()
	if d.onClose != nil {
		d.onClose()
	}
}

// tick is called by the playback timer.
func (d *Dashboard) tick(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	year, ok := d.panel.Advance(gen)
	if !ok {
		return
	}
	metrics.RecordPlaybackTick()
	if _, err := d.redrawLocked(context.Background(), year, TriggerTick); err != nil {
		d.logger.Error(context.Background(), "playback redraw failed", logger.Error(err))
	}
}

func (d *Dashboard) redraw(ctx context.Context, year int, trigger string) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return View{}, ErrDashboardClosed
	}
	year = d.panel.SetYear(year)
	return d.redrawLocked(ctx, year, trigger)
}

func (d *Dashboard) redrawLocked(ctx context.Context, year int, trigger string) (View, error) {
	sel := d.panel.Snapshot()
	slice := d.ds.Filter(year, sel.Region)

	start := time.Now()
	fc := mapview.Render(slice)
	metrics.RecordRenderLatency("map", sinceMs(start))

	start = time.Now()
	sv, err := scatter.Render(slice)
	if err != nil {
		return View{}, err
	}
	metrics.RecordRenderLatency("scatter", sinceMs(start))

	tv, err := d.renderTrend(year, "")
	if err != nil {
		return View{}, err
	}
	d.panel.SetHighlighted("")

	d.slice = slice
	v := d.view
	v.Map = fc
	v.Focus = nil
	v.Scatter = sv
	v.Trend = tv
	v.Count = len(slice)
	metrics.RecordRedraw(trigger)
	return d.commitLocked(ctx, v, trigger), nil
}

func (d *Dashboard) renderTrend(year int, country string) (trendview.View, error) {
	start := time.Now()
	tv, err := trendview.Render(d.rows, year, country)
	if err != nil {
		return trendview.View{}, err
	}
	metrics.RecordRenderLatency("trend", sinceMs(start))
	return tv, nil
}

// refreshLocked republishes the last views with the current control state.
// Focus is only sent on the frame that selected a marker.
func (d *Dashboard) refreshLocked(ctx context.Context, trigger string) View {
	v := d.view
	v.Focus = nil
	return d.commitLocked(ctx, v, trigger)
}

// commitLocked stamps v with the control state, stores it and publishes it.
func (d *Dashboard) commitLocked(ctx context.Context, v View, trigger string) View {
	sel := d.panel.Snapshot()
	d.seq++
	v.Session = d.id
	v.Seq = d.seq
	v.Trigger = trigger
	v.Year = sel.Year
	v.Region = sel.Region
	v.Playing = sel.Playing
	v.PlayLabel = sel.Label()
	v.SpeedMs = sel.Speed.Milliseconds()
	v.Status = Status(v.Count, sel.Year)
	d.view = v
	d.publish(ctx, v)
	return v
}

func (d *Dashboard) publish(ctx context.Context, v View) {
	if d.publisher == nil {
		return
	}
	payload, err := encodeView(v)
	if err != nil {
		d.logger.Error(ctx, "encode frame", logger.Error(err))
		return
	}
	if err := d.publisher.Publish(ctx, model.Frame{SessionID: d.id, Seq: v.Seq, Payload: payload}); err != nil {
		d.logger.Debug(ctx, "frame dropped", logger.Int("seq", int(v.Seq)), logger.Error(err))
	}
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func encodeView(v View) ([]byte, error) {
	return json.Marshal(v)
}
