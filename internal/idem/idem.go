// ABOUTME: Idempotency key generation for exercise completions.
// ABOUTME: Keys collide within one millisecond and diverge across instants.
package idem

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// hashBound keeps the disambiguating suffix to at most six digits.
const hashBound = 1_000_000

// Key derives the idempotency key for one exercise completion.
//
// The key embeds the plan, session, and normalized title verbatim, so it
// can never collide across different plans, sessions, or exercises. The
// suffix hashes those components together with a millisecond timestamp:
// two calls within the same millisecond (a rapid create/replace cycle)
// produce the identical key and collapse onto one record, while a
// deliberate re-completion later produces a fresh key.
func Key(planID, sessionID, title string, at time.Time) string {
	norm := NormalizeTitle(title)
	raw := fmt.Sprintf("%s_%s_%s_%d", planID, sessionID, norm, at.UnixMilli())

	h := fnv.New32a()
	_, _ = h.Write([]byte(raw))

	return fmt.Sprintf("%s_%s_%s_%d", planID, sessionID, norm, h.Sum32()%hashBound)
}

// NormalizeTitle lowers, trims, and dashes an exercise title so that
// display variations of the same exercise share a key component.
func NormalizeTitle(title string) string {
	norm := strings.ToLower(strings.TrimSpace(title))
	return strings.ReplaceAll(norm, " ", "-")
}
