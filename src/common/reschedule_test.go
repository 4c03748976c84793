package common

import (
	"testing"
	"time"

	"homestay/src/types"

	"github.com/stretchr/testify/assert"
)

func TestAppendRescheduleHistory(t *testing.T) {
	first := map[string]any{
		"old_check_in": "2026-03-10",
		"new_check_in": "2026-03-12",
	}
	metadata := appendRescheduleHistory(nil, first)
	history, ok := metadata["reschedule_history"].([]any)
	assert.True(t, ok)
	assert.Len(t, history, 1)

	second := map[string]any{
		"old_check_in": "2026-03-12",
		"new_check_in": "2026-03-10",
	}
	metadata = appendRescheduleHistory(metadata, second)
	history, _ = metadata["reschedule_history"].([]any)
	assert.Len(t, history, 2)

	// earlier entries stay untouched
	entry, _ := history[0].(map[string]any)
	assert.Equal(t, "2026-03-10", entry["old_check_in"])
	entry, _ = history[1].(map[string]any)
	assert.Equal(t, "2026-03-12", entry["old_check_in"])
}

func TestAppendRescheduleHistoryFromStoredMetadata(t *testing.T) {
	// metadata scanned back from jsonb carries the history as []any of maps
	stored := types.JSONB{
		"reschedule_history": []any{
			map[string]any{"new_check_in": "2026-03-12"},
		},
	}
	metadata := appendRescheduleHistory(stored, map[string]any{"new_check_in": "2026-03-20"})
	history, _ := metadata["reschedule_history"].([]any)
	assert.Len(t, history, 2)
}

func TestStayStarted(t *testing.T) {
	checkIn := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// minutes into the check-in day the stay has not started
	assert.False(t, stayStarted(checkIn, time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)))
	assert.False(t, stayStarted(checkIn, time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))
	assert.False(t, stayStarted(checkIn, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)))

	assert.True(t, stayStarted(checkIn, time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)))
	assert.True(t, stayStarted(checkIn, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}
