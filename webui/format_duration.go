package webui

import (
	"fmt"
	"time"
)

// FormatDuration renders d with at most two units: "45s", "2m 30s",
// "2h 34m", "3d 5h".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "-" + FormatDuration(-d)
	}
	if d < time.Second {
		return "0s"
	}

	const day = 24 * time.Hour
	days := d / day
	d %= day
	hours := d / time.Hour
	d %= time.Hour
	minutes := d / time.Minute
	d %= time.Minute
	seconds := d / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// formatProcessingTime renders a generation time the way the API reports
// it, e.g. "1840ms" or "95ms (basic processing)".
func formatProcessingTime(d time.Duration, mode string) string {
	ms := d.Milliseconds()
	switch mode {
	case ModeBasic:
		return fmt.Sprintf("%dms (basic processing)", ms)
	case ModeOriginal:
		return fmt.Sprintf("%dms (setup required)", ms)
	default:
		return fmt.Sprintf("%dms", ms)
	}
}
