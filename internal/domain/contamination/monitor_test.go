package contamination

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoroch-app/khoroch/internal/domain/category"
)

func snapshotOf(amounts ...int64) Snapshot {
	snap := Snapshot{Categories: []category.Category{category.Food}}
	total := decimal.Zero
	for _, a := range amounts {
		d := decimal.NewFromInt(a)
		snap.Amounts = append(snap.Amounts, d)
		total = total.Add(d)
	}
	snap.Total = total
	return snap
}

func newTestMonitor() *Monitor {
	return NewMonitor(DefaultWindow, slog.New(slog.DiscardHandler))
}

func TestCleanResponse(t *testing.T) {
	m := newTestMonitor()

	reqID := m.LogRequest("u1", snapshotOf(250, 120))
	finding := m.CheckResponse(reqID, "You spent 250 on food and 120 on transport, 370 in total.")
	assert.False(t, finding.Contaminated)
	assert.Empty(t, finding.Issues)
}

func TestOtherUsersAmountFlagged(t *testing.T) {
	m := newTestMonitor()

	m.LogRequest("u2", snapshotOf(98765))
	reqID := m.LogRequest("u1", snapshotOf(250))

	finding := m.CheckResponse(reqID, "Your biggest expense was 98765 this week.")
	assert.True(t, finding.Contaminated)
	require.Len(t, finding.Issues, 1)
	assert.Contains(t, finding.Issues[0], "98765")
}

func TestDuplicateTextAcrossUsers(t *testing.T) {
	m := newTestMonitor()

	text := "Here is your weekly spending summary."
	first := m.LogRequest("u1", snapshotOf(250))
	assert.False(t, m.CheckResponse(first, text).Contaminated)

	second := m.LogRequest("u2", snapshotOf(300))
	finding := m.CheckResponse(second, text)
	assert.True(t, finding.Contaminated)
	require.NotEmpty(t, finding.Issues)
	assert.Contains(t, finding.Issues[0], "duplicate")
}

func TestSameUserDuplicateNotFlagged(t *testing.T) {
	m := newTestMonitor()

	text := "Here is your weekly spending summary."
	first := m.LogRequest("u1", snapshotOf(250))
	m.CheckResponse(first, text)

	again := m.LogRequest("u1", snapshotOf(250))
	assert.False(t, m.CheckResponse(again, text).Contaminated)
}

func TestSmallNumbersIgnored(t *testing.T) {
	m := newTestMonitor()

	m.LogRequest("u2", snapshotOf(3))
	reqID := m.LogRequest("u1", snapshotOf(250))

	finding := m.CheckResponse(reqID, "You logged 3 expenses totalling 250.")
	assert.False(t, finding.Contaminated)
}

func TestWindowExpiry(t *testing.T) {
	m := NewMonitor(time.Minute, slog.New(slog.DiscardHandler))
	base := time.Now()
	m.now = func() time.Time { return base }

	m.LogRequest("u2", snapshotOf(98765))
	reqID := m.LogRequest("u1", snapshotOf(250))

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.Equal(t, 2, m.SweepExpired())

	// Expired fingerprints neither match nor get matched.
	finding := m.CheckResponse(reqID, "Your biggest expense was 98765 this week.")
	assert.False(t, finding.Contaminated)
}

func TestUnknownRequestID(t *testing.T) {
	m := newTestMonitor()
	assert.False(t, m.CheckResponse("no-such-request", "anything").Contaminated)
}
