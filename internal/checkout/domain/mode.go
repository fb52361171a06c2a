package domain

import "strings"

type Mode string

const (
	ModeLive    Mode = "live"
	ModeTest    Mode = "test"
	ModeUnknown Mode = "unknown"
)

// KeyMode derives the provider mode from a secret or restricted key prefix.
func KeyMode(secretKey string) Mode {
	key := strings.TrimSpace(secretKey)
	switch {
	case strings.HasPrefix(key, "sk_live_"), strings.HasPrefix(key, "rk_live_"):
		return ModeLive
	case strings.HasPrefix(key, "sk_test_"), strings.HasPrefix(key, "rk_test_"):
		return ModeTest
	default:
		return ModeUnknown
	}
}

// SelectShipping picks shipping rates from the pre-discount subtotal: the
// free rate once the threshold is reached, else the standard rate, else none.
func SelectShipping(subtotal, freeThreshold int64, standardRateID, freeRateID string) []string {
	freeRateID = strings.TrimSpace(freeRateID)
	standardRateID = strings.TrimSpace(standardRateID)
	if freeRateID != "" && subtotal >= freeThreshold {
		return []string{freeRateID}
	}
	if standardRateID != "" {
		return []string{standardRateID}
	}
	return nil
}
