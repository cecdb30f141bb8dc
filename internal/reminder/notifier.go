package reminder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// WriterNotifier prints reminders as plain text.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify writes r.
func (n *WriterNotifier) Notify(_ context.Context, r Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := io.WriteString(n.w, Format(r))
	return err
}

// Format renders a reminder as the text WriterNotifier prints.
func Format(r Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] grit reminder\n", r.At.Format("2006-01-02 15:04"))
	if len(r.Swept) > 0 {
		fmt.Fprintf(&b, "  Missed revisions recorded: %d\n", len(r.Swept))
		for _, t := range r.Swept {
			fmt.Fprintf(&b, "    - %s (integrity %d%%)\n", t.Name, t.Integrity)
		}
	}
	if len(r.DueTopics) > 0 {
		fmt.Fprintf(&b, "  Reviews due: %d\n", len(r.DueTopics))
		for _, t := range r.DueTopics {
			fmt.Fprintf(&b, "    - %s [%s]\n", t.Name, t.Decay)
		}
	}
	if len(r.PendingTasks) > 0 {
		fmt.Fprintf(&b, "  Tasks left today: %d\n", len(r.PendingTasks))
		for _, t := range r.PendingTasks {
			fmt.Fprintf(&b, "    - %s %s (%d min, cost %d)\n", t.TimeLabel(), t.Name, t.TimeEstimateMinutes, t.DecayCost)
		}
	}
	return b.String()
}
