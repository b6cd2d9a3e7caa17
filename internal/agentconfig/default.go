package agentconfig

import (
	"crypto/rand"
	"regexp"
	"strings"
	"time"
)

var slugInvalidRun = regexp.MustCompile(`[^a-z0-9]+`)

// slug lower-cases s, replaces runs of non [a-z0-9] with a single "-",
// strips leading/trailing "-", truncates to 50 chars, and re-strips
// trailing "-" (§4.4).
func slug(s string) string {
	s = strings.ToLower(s)
	s = slugInvalidRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return strings.TrimRight(s, "-")
}

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on the standard reader does not fail in
		// practice; a zeroed buffer still yields a valid, if less
		// random, suffix rather than panicking the caller.
		for i := range buf {
			buf[i] = 0
		}
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = idCharset[int(b)%len(idCharset)]
	}
	return string(out)
}

// GenerateDefaultConfig produces a complete, schema-valid document. id
// defaults to "slug(role)-<ts>-<6chars>", or "agent-<ts>-<6chars>" when the
// role slug is empty (§4.4). overrides, if non-nil, is merged on top of the
// generated defaults via MergeConfigs.
func GenerateDefaultConfig(role, mainGoal, createdBy string, overrides map[string]any) (*Config, error) {
	roleSlug := slug(role)
	prefix := roleSlug
	if prefix == "" {
		prefix = "agent"
	}
	id := prefix + "-" + formatTimestamp(time.Now()) + "-" + randomSuffix(6)

	cfg := Default()
	cfg.ID = id
	cfg.Role = role
	cfg.DisplayName = role
	cfg.MainGoal = mainGoal
	cfg.CreatedBy = createdBy

	if overrides == nil {
		return cfg, nil
	}
	return MergeConfigs(cfg, overrides)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("20060102150405")
}
