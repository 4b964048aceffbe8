package scanner

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// ProgressTracker draws a progress bar on stderr when it is a terminal and
// does nothing otherwise
type ProgressTracker struct {
	description string
	enabled     bool
	bar         *progressbar.ProgressBar
}

// NewProgressTracker creates a tracker with the given bar label
func NewProgressTracker(description string) *ProgressTracker {
	return &ProgressTracker{
		description: description,
		enabled:     isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

// Update implements ProgressFunc; the bar is created on the first call
// once the total is known
func (p *ProgressTracker) Update(done, total int) {
	if !p.enabled {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(p.description),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.bar.Set(done)
}

// Stop clears the bar
func (p *ProgressTracker) Stop() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
