package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/journal"
)

// seedJournal writes a small journal: A1 confirmed, B2 rolled back, C3 in flight.
func seedJournal(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "cartsync.db")
	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []journal.Entry{
		{Seq: 1, ProductID: "A1", Sequence: 1, Kind: "add", Outcome: journal.OutcomeIssued, Quantity: 1, RequestID: "0123456789abcdef0123"},
		{Seq: 2, ProductID: "B2", Sequence: 1, Kind: "set_quantity", Outcome: journal.OutcomeIssued, Quantity: 3},
		{Seq: 3, ProductID: "A1", Sequence: 1, Kind: "add", Outcome: journal.OutcomeConfirmed, Quantity: 1},
		{Seq: 4, ProductID: "B2", Sequence: 1, Kind: "set_quantity", Outcome: journal.OutcomeRolledBack, Quantity: 3, Detail: "REQUEST_FAILED: boom"},
		{Seq: 5, ProductID: "C3", Sequence: 1, Kind: "remove", Outcome: journal.OutcomeIssued},
		{Seq: 6, Sequence: 1, Kind: journal.KindSummary, Outcome: journal.OutcomeResynced, Quantity: 4},
	}
	for _, e := range entries {
		e.RecordedAt = at
		require.NoError(t, j.Record(context.Background(), e))
	}
	return db
}

func TestTrace_Text(t *testing.T) {
	db := seedJournal(t)

	out, _, err := execute(t, "", "trace", "--db", db)
	require.NoError(t, err)

	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "[4] B2")
	assert.Contains(t, out, "rolled_back qty=3")
	assert.Contains(t, out, "(cart)")
	assert.Contains(t, out, "Total Events: 6")
	assert.Contains(t, out, "issued:       3")
	assert.Contains(t, out, "Unsettled:    1")
	assert.NotContains(t, out, "Detail:")
}

func TestTrace_Verbose(t *testing.T) {
	db := seedJournal(t)

	out, _, err := execute(t, "", "trace", "--db", db, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Detail: REQUEST_FAILED: boom")
	assert.Contains(t, out, "Request: 01234567...cdef0123")
	assert.Contains(t, out, "At: 2026-01-01T00:00:00Z")
}

func TestTrace_Filters(t *testing.T) {
	db := seedJournal(t)

	tests := []struct {
		name      string
		args      []string
		wantSeqs  []int64
		unsettled int
	}{
		{"product", []string{"--product", "A1"}, []int64{1, 3}, 0},
		{"outcome", []string{"--outcome", "issued"}, []int64{1, 2, 5}, 1},
		{"both", []string{"--product", "C3", "--outcome", "issued"}, []int64{5}, 1},
		{"no match", []string{"--outcome", "declined"}, []int64{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"trace", "--db", db, "--format", "json"}, tt.args...)
			out, _, err := execute(t, "", args...)
			require.NoError(t, err)

			var resp struct {
				Data TraceResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))

			seqs := []int64{}
			for _, ev := range resp.Data.Timeline {
				seqs = append(seqs, ev.Seq)
			}
			assert.Equal(t, tt.wantSeqs, seqs)
			assert.Equal(t, len(tt.wantSeqs), resp.Data.Stats.TotalEvents)
			assert.Equal(t, tt.unsettled, resp.Data.Stats.Unsettled)
		})
	}
}

func TestTrace_AfterSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cartsync.db")
	_, _, err := execute(t, "+ A1\n", "run", "--db", db, "--seed", "A1:1:2.00")
	require.NoError(t, err)

	out, _, err := execute(t, "", "trace", "--db", db, "--product", "A1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Timeline, 2)
	assert.Equal(t, "issued", resp.Data.Timeline[0].Outcome)
	assert.Equal(t, "confirmed", resp.Data.Timeline[1].Outcome)
	assert.Equal(t, 2, resp.Data.Timeline[1].Quantity)
	assert.NotEmpty(t, resp.Data.Timeline[0].RequestID)
	assert.Equal(t, 0, resp.Data.Stats.Unsettled)
}

func TestCountUnsettled_StaleSettles(t *testing.T) {
	entries := []journal.Entry{
		{ProductID: cart.ProductID("A1"), Sequence: 1, Outcome: journal.OutcomeIssued},
		{ProductID: cart.ProductID("A1"), Sequence: 2, Outcome: journal.OutcomeIssued},
		{ProductID: cart.ProductID("A1"), Sequence: 2, Outcome: journal.OutcomeConfirmed},
		{ProductID: cart.ProductID("A1"), Sequence: 1, Outcome: journal.OutcomeStale},
	}
	assert.Equal(t, 0, countUnsettled(entries))
	assert.Equal(t, 2, countUnsettled(entries[:2]))
}
