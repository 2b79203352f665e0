package render

import (
	"fmt"
	"strconv"

	"github.com/aNThiCu/AirsoftChronograph/internal/model"
)

// LogLine formats a shot log entry as "#<seq>: <speed> m/s, <joules> J".
// Speed is shown with one decimal, joules in their shortest exact form.
func LogLine(entry model.ShotLogEntry) string {
	return fmt.Sprintf("#%d: %s m/s, %s J",
		entry.Sequence,
		strconv.FormatFloat(entry.Metric, 'f', 1, 64),
		strconv.FormatFloat(entry.Joules, 'f', -1, 64),
	)
}

// LogLines formats a whole shot log.
func LogLines(entries []model.ShotLogEntry) []string {
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = LogLine(entry)
	}
	return lines
}
