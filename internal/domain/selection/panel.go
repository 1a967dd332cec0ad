// Package selection holds the control-panel state of one dashboard session:
// year, region, playback and the highlighted country.
package selection

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/happymap/internal/domain/model"
)

// Play button labels.
const (
	PlayLabel  = "▶ Play"
	PauseLabel = "⏸ Pause"
)

// Selection is a snapshot of the panel.
type Selection struct {
	Year        int
	Region      string
	Playing     bool
	Speed       time.Duration
	Highlighted string
}

// Label returns the play button text for the snapshot.
func (s Selection) Label() string {
	if s.Playing {
		return PauseLabel
	}
	return PlayLabel
}

// Panel owns a Selection and its playback timer. All methods are safe for
// concurrent use.
type Panel struct {
	mu     sync.Mutex
	ds     *model.Dataset
	sel    Selection
	speeds []time.Duration
	onTick func(gen uint64)

	gen    uint64
	cancel context.CancelFunc
}

// New returns a panel positioned at the last year with every region shown.
func New(ds *model.Dataset, opts ...Option) *Panel {
	p := &Panel{
		ds:     ds,
		speeds: slices.Clone(DefaultSpeeds),
		sel: Selection{
			Year:   ds.MaxYear(),
			Region: model.AllRegions,
			Speed:  DefaultSpeed,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if !slices.Contains(p.speeds, p.sel.Speed) {
		p.sel.Speed = p.speeds[0]
	}
	return p
}

// Snapshot returns the current selection.
func (p *Panel) Snapshot() Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sel
}

// Speeds returns the allowed playback intervals.
func (p *Panel) Speeds() []time.Duration {
	return slices.Clone(p.speeds)
}

// SetYear moves the slider, clamped to the dataset's years, and returns the
// year actually set.
func (p *Panel) SetYear(year int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sel.Year = p.ds.ClampYear(year)
	return p.sel.Year
}

// SetRegion changes the filter region.
func (p *Panel) SetRegion(region string) error {
	if !p.ds.HasRegion(region) {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	p.mu.Lock()
	p.sel.Region = region
	p.mu.Unlock()
	return nil
}

// SetSpeed changes the playback interval. A running timer keeps its interval
// until playback is restarted.
func (p *Panel) SetSpeed(d time.Duration) error {
	if !slices.Contains(p.speeds, d) {
		return fmt.Errorf("%w: %s", ErrUnknownSpeed, d)
	}
	p.mu.Lock()
	p.sel.Speed = d
	p.mu.Unlock()
	return nil
}

// SetHighlighted records the country shown in the trend pane ("" for none).
func (p *Panel) SetHighlighted(country string) {
	p.mu.Lock()
	p.sel.Highlighted = country
	p.mu.Unlock()
}

// TogglePlay starts or stops playback and returns the new playing state.
func (p *Panel) TogglePlay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sel.Playing {
		p.stopLocked()
		return false
	}
	p.startLocked()
	return true
}

// Advance moves to the next year, wrapping to the first, if gen is still the
// running play generation. Stale ticks from a stopped timer return false.
func (p *Panel) Advance(gen uint64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.sel.Playing || gen != p.gen {
		return p.sel.Year, false
	}
	p.sel.Year = p.ds.NextYear(p.sel.Year)
	return p.sel.Year, true
}

// Reset stops playback and returns to every region at the last year with no
// highlighted country. The speed is kept.
func (p *Panel) Reset() Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.sel.Region = model.AllRegions
	p.sel.Year = p.ds.MaxYear()
	p.sel.Highlighted = ""
	return p.sel
}

// Close stops the timer.
func (p *Panel) Close() {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()
}

func (p *Panel) startLocked() {
	p.gen++
	p.sel.Playing = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx, p.gen, p.sel.Speed)
}

func (p *Panel) stopLocked() {
	p.sel.Playing = false
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Panel) run(ctx context.Context, gen uint64, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if p.onTick != nil {
				p.onTick(gen)
			} else {
				p.Advance(gen)
			}
		}
	}
}
