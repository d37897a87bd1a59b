package intent

import (
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// timeLayouts covers the formats the extraction model has been observed to
// emit. First match wins.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
}

// NormalizeTime parses a model-extracted time string and returns it in
// RFC 3339 UTC. Unparseable input reports ok=false; the caller treats the
// field as absent.
func NormalizeTime(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC().Format(time.RFC3339), true
		}
	}
	return "", false
}

// NormalizePhone formats a phone number as E.164 using the given default
// region for national numbers. Invalid numbers report ok=false.
func NormalizePhone(raw, region string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if region == "" {
		region = "US"
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", false
	}
	// Fictional test ranges (555) fail strict validation; possible-length
	// numbers are still dialable by the provider.
	if !phonenumbers.IsValidNumber(num) && !phonenumbers.IsPossibleNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}
