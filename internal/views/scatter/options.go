package scatter

// Default layout, matching the page's scatter pane.
const (
	DefaultWidth  = 440
	DefaultHeight = 380
	DefaultMargin = 50
	DefaultRadius = 5.0
	DefaultTicks  = 5
)

type config struct {
	width, height, margin int
	radius                float64
	ticks                 int
}

// Option adjusts the layout.
type Option func(*config)

// WithSize sets the SVG size in pixels.
func WithSize(width, height int) Option {
	return func(c *config) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// WithMargin sets the space reserved around the plot area for axes.
func WithMargin(m int) Option {
	return func(c *config) {
		if m >= 0 {
			c.margin = m
		}
	}
}

// WithRadius sets the point radius.
func WithRadius(r float64) Option {
	return func(c *config) {
		if r > 0 {
			c.radius = r
		}
	}
}
