package sponsor

import (
	"regexp"
	"strings"

	"github.com/nulzo/concierge-bot/internal/core/domain"
)

// Channel is one sponsor channel in canonical form. Two channels are
// the same entity iff ID matches exactly; ID and Label are both the
// "@username" form, and URL is the public join link.
type Channel struct {
	Raw   string `json:"raw"`
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	numericPattern  = regexp.MustCompile(`^-?[0-9]+$`)
)

// Normalize canonicalizes a channel reference: a full t.me URL, an
// "@handle", or a bare name all resolve to the same identity. Invite
// links ("+..." or "joinchat/...") are rejected because membership
// cannot be queried through them, and purely numeric IDs are rejected
// because they cannot be rendered as join links.
func Normalize(raw string) (Channel, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return Channel{}, domain.InvalidChannel("empty channel reference")
	}

	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(cleaned, prefix) {
			cleaned = strings.TrimPrefix(cleaned, prefix)
			break
		}
	}

	if strings.HasPrefix(cleaned, "+") || strings.HasPrefix(cleaned, "joinchat/") {
		return Channel{}, domain.InvalidChannel("invite links are not supported")
	}

	username := strings.TrimPrefix(cleaned, "@")
	if numericPattern.MatchString(username) {
		return Channel{}, domain.InvalidChannel("numeric channel ids are not supported")
	}
	if !usernamePattern.MatchString(username) {
		return Channel{}, domain.InvalidChannel("invalid channel username: %s", username)
	}

	handle := "@" + username
	return Channel{
		Raw:   raw,
		ID:    handle,
		Label: handle,
		URL:   "https://t.me/" + username,
	}, nil
}

// NormalizeList canonicalizes a slice of raw references, dropping
// duplicates while preserving first-seen order.
func NormalizeList(raws []string) ([]Channel, error) {
	channels := make([]Channel, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		ch, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		if seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		channels = append(channels, ch)
	}
	return channels, nil
}

// ParseCSV splits a comma-separated channel list and normalizes each
// entry.
func ParseCSV(raw string) ([]Channel, error) {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return NormalizeList(items)
}
