package domain

import (
	"fmt"
	"time"
)

// Preset is a named duration bucket used for expiration-extension
// calculations. The rental API only ever moves a device's expiration by
// one of these fixed steps.
type Preset string

const (
	// PresetImmediate expires the device right away; the health loops use
	// it to force-expire stale devices.
	PresetImmediate Preset = "immediate"
	// PresetTest is a short 8x8s window used against staging servers.
	PresetTest  Preset = "test"
	PresetHour  Preset = "1h"
	PresetDay   Preset = "1d"
	PresetWeek  Preset = "1w"
	PresetMonth Preset = "1mo"
)

func (p Preset) Valid() bool {
	switch p {
	case PresetImmediate, PresetTest, PresetHour, PresetDay, PresetWeek, PresetMonth:
		return true
	default:
		return false
	}
}

// Duration returns the preset's expiration delta.
func (p Preset) Duration() time.Duration {
	switch p {
	case PresetImmediate:
		return 0
	case PresetTest:
		return 8 * 8 * time.Second
	case PresetHour:
		return time.Hour
	case PresetDay:
		return 24 * time.Hour
	case PresetWeek:
		return 7 * 24 * time.Hour
	case PresetMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// NextExpiration computes a device's new expiration. New rentals run
// from now; renewals extend the previous expiration so a buyer never
// loses time already paid for.
func NextExpiration(now, oldExpiration time.Time, preset Preset, renewal bool) (time.Time, error) {
	if !preset.Valid() {
		return time.Time{}, fmt.Errorf("unknown duration preset %q", preset)
	}
	if renewal {
		return oldExpiration.Add(preset.Duration()), nil
	}
	return now.Add(preset.Duration()), nil
}
