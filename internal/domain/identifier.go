package domain

import (
	"regexp"
	"strings"
)

var deviceIDPattern = regexp.MustCompile(`^[a-f0-9]{24}$`)

// ValidDeviceID reports whether s is a well-formed device identifier:
// exactly 24 lowercase hex characters, the format the rental API uses.
func ValidDeviceID(s string) bool {
	return deviceIDPattern.MatchString(s)
}

// DeviceIDFromSlug extracts the device identifier embedded in a listing
// slug. The identifier is always the last '-'-delimited token.
func DeviceIDFromSlug(slug string) DeviceID {
	idx := strings.LastIndex(slug, "-")
	if idx < 0 {
		return DeviceID(slug)
	}
	return DeviceID(slug[idx+1:])
}

// IsRenewalSlug reports whether the listing slug marks a renewal order,
// one that extends an existing rental instead of starting a new one.
func IsRenewalSlug(slug string) bool {
	return strings.Contains(slug, "renewal")
}
