package agent

import "strings"

const (
	// progressHardLimit triggers trimming of the progress log.
	progressHardLimit = 12000
	// progressTrimTarget is the size the log is trimmed down to.
	progressTrimTarget = 8000
)

// progressLog accumulates the step-by-step history fed back into each
// reasoning prompt. When the rendered log grows past the hard limit it
// is trimmed to its most recent tail; early steps matter less than
// recent tool output.
type progressLog struct {
	entries []string
}

func (p *progressLog) add(entry string) {
	p.entries = append(p.entries, entry)
}

func (p *progressLog) render() string {
	if len(p.entries) == 0 {
		return "(nothing yet)"
	}
	joined := strings.Join(p.entries, "\n\n")
	if len(joined) > progressHardLimit {
		joined = "... (earlier steps trimmed)\n" + joined[len(joined)-progressTrimTarget:]
	}
	return joined
}
