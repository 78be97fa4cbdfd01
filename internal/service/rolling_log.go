package service

import (
	"sync"

	"github.com/flare-risk-server/internal/domain"
)

// DefaultWindow is the number of records a session keeps for trend charting.
const DefaultWindow = domain.RollingLogLimit

// RollingLog keeps the most recent records of one session, oldest first.
// Appending past the window evicts the oldest record.
type RollingLog struct {
	mu          sync.RWMutex
	window      int
	records     []domain.SymptomLogRecord
	subscribers map[int]chan domain.SymptomLogRecord
	nextSubID   int
	closed      bool
}

// NewRollingLog creates an empty log. A window outside
// [1, domain.RollingLogLimit] selects DefaultWindow.
func NewRollingLog(window int) *RollingLog {
	if window <= 0 || window > domain.RollingLogLimit {
		window = DefaultWindow
	}
	return &RollingLog{
		window:      window,
		records:     make([]domain.SymptomLogRecord, 0, window),
		subscribers: make(map[int]chan domain.SymptomLogRecord),
	}
}

// Append adds record and notifies subscribers. Subscribers that are not
// keeping up miss the record rather than blocking the caller.
func (l *RollingLog) Append(record domain.SymptomLogRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) == l.window {
		copy(l.records, l.records[1:])
		l.records = l.records[:l.window-1]
	}
	l.records = append(l.records, record)

	for _, ch := range l.subscribers {
		select {
		case ch <- record:
		default:
		}
	}
}

// Records returns a copy of the retained records, oldest first.
func (l *RollingLog) Records() []domain.SymptomLogRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.SymptomLogRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of retained records.
func (l *RollingLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Window returns the retention bound.
func (l *RollingLog) Window() int {
	return l.window
}

// Subscribe returns a snapshot of the current records and a channel that
// receives every record appended afterwards. The cancel func releases the
// subscription and closes the channel.
func (l *RollingLog) Subscribe(buffer int) ([]domain.SymptomLogRecord, <-chan domain.SymptomLogRecord, func()) {
	if buffer <= 0 {
		buffer = l.window
	}
	ch := make(chan domain.SymptomLogRecord, buffer)

	l.mu.Lock()
	snapshot := make([]domain.SymptomLogRecord, len(l.records))
	copy(snapshot, l.records)
	if l.closed {
		l.mu.Unlock()
		close(ch)
		return snapshot, ch, func() {}
	}
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = ch
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if sub, ok := l.subscribers[id]; ok {
				delete(l.subscribers, id)
				close(sub)
			}
		})
	}
	return snapshot, ch, cancel
}

// Close ends every subscription. Records stay readable.
func (l *RollingLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for id, ch := range l.subscribers {
		delete(l.subscribers, id)
		close(ch)
	}
}

// Trend is the rolling log laid out as chart series.
type Trend struct {
	Dates         []string `json:"dates"`
	AbdominalPain []int    `json:"abdominal_pain"`
	Bloating      []int    `json:"bloating"`
	Flare         []int    `json:"flare"`
	FlareRate     float64  `json:"flare_rate"`
}

// Trend returns the retained records as parallel series.
func (l *RollingLog) Trend() Trend {
	return TrendOf(l.Records())
}

// TrendOf lays records out as parallel series.
func TrendOf(records []domain.SymptomLogRecord) Trend {
	trend := Trend{
		Dates:         make([]string, 0, len(records)),
		AbdominalPain: make([]int, 0, len(records)),
		Bloating:      make([]int, 0, len(records)),
		Flare:         make([]int, 0, len(records)),
	}

	flares := 0
	for _, r := range records {
		trend.Dates = append(trend.Dates, r.Date)
		trend.AbdominalPain = append(trend.AbdominalPain, r.AbdominalPain)
		trend.Bloating = append(trend.Bloating, r.Bloating)
		if r.FlareLikely {
			trend.Flare = append(trend.Flare, 1)
			flares++
		} else {
			trend.Flare = append(trend.Flare, 0)
		}
	}
	if len(records) > 0 {
		trend.FlareRate = float64(flares) / float64(len(records))
	}
	return trend
}
