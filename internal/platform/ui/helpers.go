// internal/platform/ui/helpers.go
package ui

import (
	"fmt"
	"time"
)

// formatDuration formatea una duración de manera legible
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
}

// New builds the presenter for a UI mode. Unknown modes fall back to quiet.
func New(mode UIMode, opts ...RawOption) Presenter {
	switch mode {
	case UIModePretty:
		return NewPTermPresenter()
	case UIModeRaw:
		return NewRawPresenter(opts...)
	default:
		return NewNoopPresenter()
	}
}
