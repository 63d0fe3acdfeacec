package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStackExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	month := 30 * 24 * time.Hour

	t.Run("no current expiry starts from now", func(t *testing.T) {
		got := stackExpiry(nil, now, month)
		assert.Equal(t, now.Add(month), got)
	})

	t.Run("future expiry extends from the expiry", func(t *testing.T) {
		current := now.Add(10 * 24 * time.Hour)
		got := stackExpiry(&current, now, month)
		assert.Equal(t, current.Add(month), got)
	})

	t.Run("past expiry starts from now", func(t *testing.T) {
		current := now.Add(-time.Hour)
		got := stackExpiry(&current, now, month)
		assert.Equal(t, now.Add(month), got)
	})

	t.Run("expiry exactly now starts from now", func(t *testing.T) {
		current := now
		got := stackExpiry(&current, now, month)
		assert.Equal(t, now.Add(month), got)
	})
}
