// ABOUTME: Tests for idempotency key derivation.
// ABOUTME: Covers stability within a millisecond, divergence over time, and scoping.
package idem

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyStableWithinSameInstant(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

	k1 := Key("p1", "s1", "Max Boulder Session", at)
	k2 := Key("p1", "s1", "Max Boulder Session", at)

	assert.Equal(t, k1, k2)
}

func TestKeyDivergesAcrossInstants(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	k1 := Key("p1", "s1", "Max Boulder Session", at)
	k2 := Key("p1", "s1", "Max Boulder Session", at.Add(time.Second))

	assert.NotEqual(t, k1, k2)
}

func TestKeyScopedByPlanSessionTitle(t *testing.T) {
	at := time.Now()

	base := Key("p1", "s1", "Fingerboard Hangs", at)

	assert.NotEqual(t, base, Key("p2", "s1", "Fingerboard Hangs", at))
	assert.NotEqual(t, base, Key("p1", "s2", "Fingerboard Hangs", at))
	assert.NotEqual(t, base, Key("p1", "s1", "Core Circuit", at))
}

func TestKeyNormalizesTitle(t *testing.T) {
	at := time.Now()

	k1 := Key("p1", "s1", "  Fingerboard Hangs ", at)
	k2 := Key("p1", "s1", "fingerboard hangs", at)

	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "p1_s1_fingerboard-hangs_"))
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"lowercases", "Core Circuit", "core-circuit"},
		{"trims", "  Campus Board  ", "campus-board"},
		{"multi word", "4x4 Power Endurance Circuits", "4x4-power-endurance-circuits"},
		{"already normal", "deadhangs", "deadhangs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.title))
		})
	}
}
