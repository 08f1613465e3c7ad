// Package contamination is a best-effort safety net against one user's
// expense data leaking into text generated for another user. Findings are
// logged and counted but never block a response; false negatives are
// possible by design.
package contamination

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

// DefaultWindow is how long request fingerprints stay comparable.
const DefaultWindow = 15 * time.Minute

var findingsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "khoroch_contamination_findings_total",
	Help: "Suspected cross-user data leaks flagged in generated text.",
}, []string{"issue"})

// Snapshot is the expense data a generation request was built from.
type Snapshot struct {
	Categories []category.Category
	Amounts    []decimal.Decimal
	Total      decimal.Decimal
}

// Finding is the verdict for one generated response.
type Finding struct {
	Contaminated bool     `json:"contamination"`
	Issues       []string `json:"issues,omitempty"`
}

// fingerprint is the stored, comparable form of a snapshot.
type fingerprint struct {
	userID     string
	categories string
	amounts    map[string]bool
	loggedAt   time.Time
}

// Monitor tracks recent request fingerprints and screens generated text.
type Monitor struct {
	mu     sync.Mutex
	byReq  map[string]*fingerprint
	served map[string]string // text hash -> user it was served to
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewMonitor(window time.Duration, logger *slog.Logger) *Monitor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Monitor{
		byReq:  make(map[string]*fingerprint),
		served: make(map[string]string),
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// LogRequest records the fingerprint of the data behind a generation request
// and returns the request id to present at CheckResponse.
func (m *Monitor) LogRequest(userID string, snap Snapshot) string {
	cats := make([]string, len(snap.Categories))
	for i, c := range snap.Categories {
		cats[i] = c.String()
	}
	sort.Strings(cats)

	amounts := make(map[string]bool, len(snap.Amounts)+1)
	for _, a := range snap.Amounts {
		amounts[canonicalAmount(a)] = true
	}
	amounts[canonicalAmount(snap.Total)] = true

	requestID := uuid.NewString()
	m.mu.Lock()
	m.byReq[requestID] = &fingerprint{
		userID:     userID,
		categories: strings.Join(cats, ","),
		amounts:    amounts,
		loggedAt:   m.now(),
	}
	m.mu.Unlock()
	return requestID
}

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// CheckResponse scans generated text for numbers belonging to other users'
// recent snapshots and for exact duplicates of text already served to a
// different user. Heuristic only; findings never block the response.
func (m *Monitor) CheckResponse(requestID, generatedText string) Finding {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()

	fp, ok := m.byReq[requestID]
	if !ok {
		return Finding{}
	}

	var issues []string
	for _, raw := range numberRe.FindAllString(generatedText, -1) {
		num, err := decimal.NewFromString(raw)
		if err != nil || num.LessThan(decimal.NewFromInt(10)) {
			// Tiny numbers (option indices, counts) are too noisy to match.
			continue
		}
		key := canonicalAmount(num)
		if fp.amounts[key] {
			continue
		}
		for _, other := range m.byReq {
			if other.userID != fp.userID && other.amounts[key] {
				issues = append(issues, fmt.Sprintf("amount %s matches another user's recent data", raw))
				break
			}
		}
	}

	textHash := hashText(generatedText)
	if servedTo, ok := m.served[textHash]; ok && servedTo != fp.userID {
		issues = append(issues, "response text is an exact duplicate of one served to another user")
	}
	m.served[textHash] = fp.userID

	if len(issues) == 0 {
		return Finding{}
	}
	for _, issue := range issues {
		kind := "amount_overlap"
		if strings.Contains(issue, "duplicate") {
			kind = "duplicate_text"
		}
		findingsCounter.WithLabelValues(kind).Inc()
	}
	m.logger.Warn("possible cross-user contamination",
		slog.String("request_id", requestID),
		slog.Int("issues", len(issues)),
	)
	return Finding{Contaminated: true, Issues: issues}
}

// SweepExpired drops fingerprints older than the window. Run periodically;
// CheckResponse also purges inline.
func (m *Monitor) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked()
}

func (m *Monitor) purgeLocked() int {
	cutoff := m.now().Add(-m.window)
	purged := 0
	for id, fp := range m.byReq {
		if fp.loggedAt.Before(cutoff) {
			delete(m.byReq, id)
			purged++
		}
	}
	return purged
}

func canonicalAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}
