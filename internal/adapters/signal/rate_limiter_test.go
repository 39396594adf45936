package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("should allow up to the limit inside the window", func(t *testing.T) {
		req := require.New(t)
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		rl := NewRateLimiter(3, time.Second)
		rl.now = func() time.Time { return now }

		for range 3 {
			req.True(rl.Allow("c1"))
		}
		req.False(rl.Allow("c1"))
		req.True(rl.Allow("c2"))

		// When the window slides past the first burst
		now = now.Add(1100 * time.Millisecond)

		// Then
		req.True(rl.Allow("c1"))
	})

	t.Run("should start fresh after Forget", func(t *testing.T) {
		req := require.New(t)
		rl := NewRateLimiter(1, time.Minute)

		req.True(rl.Allow("c1"))
		req.False(rl.Allow("c1"))
		rl.Forget("c1")
		req.True(rl.Allow("c1"))
	})

	t.Run("should not limit when disabled", func(t *testing.T) {
		req := require.New(t)
		rl := NewRateLimiter(0, time.Second)
		for range 100 {
			req.True(rl.Allow("c1"))
		}
	})
}
