package research

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/xeonx/timeago"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/finresearch/internal/model"
)

// ItemState is where one company-quarter sits in a batch.
type ItemState string

const (
	StateNotStarted ItemState = "not_started"
	StateInProgress ItemState = "in_progress"
	StateCompleted  ItemState = "completed"
	StateFailed     ItemState = "failed"
)

// Item is one tracked unit of work.
type Item struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	State       ItemState `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"start_time,omitempty"`
	EndedAt     time.Time `json:"end_time,omitempty"`
}

// ProgressSummary is a point-in-time copy of a Tracker.
type ProgressSummary struct {
	Total          int      `json:"total_items"`
	Completed      int      `json:"completed"`
	Failed         int      `json:"failed"`
	InProgress     int      `json:"in_progress"`
	NotStarted     int      `json:"not_started"`
	Percent        float64  `json:"progress_percent"`
	SuccessRate    float64  `json:"success_rate"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	ETASeconds     *float64 `json:"eta_seconds"`
	Items          []Item   `json:"items"`
}

// Tracker records per-item progress for a batch. It is safe for use by
// concurrent workers.
type Tracker struct {
	mu      sync.Mutex
	items   map[string]*Item
	order   []string
	started time.Time
	now     func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerClock replaces time.Now.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns an empty tracker whose clock starts now.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{items: map[string]*Item{}, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	t.started = t.now()
	return t
}

// ItemID is the tracker key for p.
func ItemID(p model.Period) string { return p.Key() }

// ItemDescription renders "TCS - Q1 2025".
func ItemDescription(p model.Period) string { return p.String() }

// Register adds a not-started item. Registering an existing id is a no-op.
func (t *Tracker) Register(id, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.register(id, description)
}

func (t *Tracker) register(id, description string) *Item {
	if it, ok := t.items[id]; ok {
		return it
	}
	it := &Item{ID: id, Description: description, State: StateNotStarted}
	t.items[id] = it
	t.order = append(t.order, id)
	return it
}

// Start marks id in progress, registering it when needed.
func (t *Tracker) Start(id, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it := t.register(id, description)
	it.State = StateInProgress
	it.StartedAt = t.now()
	zap.L().Debug("research: item started", zap.String("item", id))
}

// Complete marks id completed.
func (t *Tracker) Complete(id string) {
	t.finish(id, StateCompleted, "")
}

// Fail marks id failed with msg.
func (t *Tracker) Fail(id, msg string) {
	t.finish(id, StateFailed, msg)
}

func (t *Tracker) finish(id string, state ItemState, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it := t.register(id, id)
	now := t.now()
	if it.StartedAt.IsZero() {
		it.StartedAt = now
	}
	it.State = state
	it.Error = msg
	it.EndedAt = now

	done, total := t.countLocked(StateCompleted)+t.countLocked(StateFailed), len(t.items)
	if state == StateFailed {
		zap.L().Warn("research: item failed", zap.String("item", id), zap.String("error", msg))
		return
	}
	zap.L().Info("research: item completed",
		zap.String("item", id),
		zap.String("progress", fmt.Sprintf("%d/%d", done, total)),
	)
}

func (t *Tracker) countLocked(s ItemState) int {
	n := 0
	for _, it := range t.items {
		if it.State == s {
			n++
		}
	}
	return n
}

// Percent is the share of items that reached a final state. An empty
// tracker is 100% done.
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percentLocked()
}

func (t *Tracker) percentLocked() float64 {
	if len(t.items) == 0 {
		return 100
	}
	done := t.countLocked(StateCompleted) + t.countLocked(StateFailed)
	return float64(done) / float64(len(t.items)) * 100
}

// SuccessRate is completed / (completed + failed) as a percentage, or 100
// before anything finished.
func (t *Tracker) SuccessRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.successRateLocked()
}

func (t *Tracker) successRateLocked() float64 {
	ok, failed := t.countLocked(StateCompleted), t.countLocked(StateFailed)
	if ok+failed == 0 {
		return 100
	}
	return float64(ok) / float64(ok+failed) * 100
}

// ETA estimates the time left as the mean duration of completed items times
// the number of items not yet finished. ok is false until an item completes.
func (t *Tracker) ETA() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.etaLocked()
}

func (t *Tracker) etaLocked() (time.Duration, bool) {
	var durations []float64
	remaining := 0
	for _, it := range t.items {
		switch it.State {
		case StateCompleted:
			durations = append(durations, it.EndedAt.Sub(it.StartedAt).Seconds())
		case StateNotStarted, StateInProgress:
			remaining++
		}
	}
	if len(durations) == 0 {
		return 0, false
	}
	secs := stat.Mean(durations, nil) * float64(remaining)
	return time.Duration(secs * float64(time.Second)), true
}

// Summary returns a snapshot of the tracker. Items are in registration
// order.
func (t *Tracker) Summary() ProgressSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := ProgressSummary{
		Total:          len(t.items),
		Completed:      t.countLocked(StateCompleted),
		Failed:         t.countLocked(StateFailed),
		InProgress:     t.countLocked(StateInProgress),
		NotStarted:     t.countLocked(StateNotStarted),
		Percent:        round2(t.percentLocked()),
		SuccessRate:    round2(t.successRateLocked()),
		ElapsedSeconds: round2(t.now().Sub(t.started).Seconds()),
		Items:          make([]Item, 0, len(t.order)),
	}
	if eta, ok := t.etaLocked(); ok {
		secs := round2(eta.Seconds())
		s.ETASeconds = &secs
	}
	for _, id := range t.order {
		s.Items = append(s.Items, *t.items[id])
	}
	return s
}

const barWidth = 40

var (
	barDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barLeft    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// PrintProgress writes a progress bar followed by up to three in-progress,
// recently completed and failed items.
func (t *Tracker) PrintProgress(w io.Writer) error {
	s := t.Summary()
	now := t.now()

	filled := int(barWidth * s.Percent / 100)
	bar := barDone.Render(strings.Repeat("█", filled)) + barLeft.Render(strings.Repeat("░", barWidth-filled))

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[%s] %s (%d/%d)\n", bar,
		titleStyle.Render(fmt.Sprintf("%.1f%% Complete", s.Percent)), s.Completed+s.Failed, s.Total)

	var busy, done, failed []Item
	for _, it := range s.Items {
		switch it.State {
		case StateInProgress:
			busy = append(busy, it)
		case StateCompleted:
			done = append(done, it)
		case StateFailed:
			failed = append(failed, it)
		}
	}
	for _, it := range head(busy, 3) {
		fmt.Fprintf(&sb, "%s %s - In progress...\n", busyStyle.Render("⏳"), it.Description)
	}
	for _, it := range tail(done, 3) {
		fmt.Fprintf(&sb, "%s %s - Completed\n", okStyle.Render("✓"), it.Description)
	}
	for _, it := range tail(failed, 3) {
		fmt.Fprintf(&sb, "%s %s - Failed: %s\n", failStyle.Render("✗"), it.Description, it.Error)
	}

	fmt.Fprintf(&sb, "\nStarted %s", timeago.English.FormatReference(t.started, now))
	if s.ETASeconds != nil {
		eta := time.Duration(*s.ETASeconds * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(&sb, " | ETA: %s", eta)
	}
	fmt.Fprintf(&sb, " | Success Rate: %.1f%%\n", s.SuccessRate)

	_, err := io.WriteString(w, sb.String())
	return err
}

func head(items []Item, n int) []Item {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func tail(items []Item, n int) []Item {
	if len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
