package pipeline

import "fmt"

// Mode selects how the scored record list is reduced.
type Mode string

const (
	ModeCustom           Mode = "Custom"
	ModeLowRisk          Mode = "Low-Risk"
	ModeHighROI          Mode = "High-ROI"
	ModePassiveOvernight Mode = "Passive Overnight"
	ModeHighVolume       Mode = "High Volume"
)

// HighVolumeLimit caps the High Volume mode result.
const HighVolumeLimit = 250

// Thresholds is the conjunctive filter applied outside High Volume and
// show-all runs.
type Thresholds struct {
	MinMargin             int64   `json:"min_margin" mapstructure:"min_margin"`
	MinVolume             int64   `json:"min_volume" mapstructure:"min_volume"`
	MinUtility            float64 `json:"min_utility" mapstructure:"min_utility"`
	SeasonThreshold       float64 `json:"season_threshold" mapstructure:"season_threshold"`
	ManipulationThreshold int     `json:"manipulation_threshold" mapstructure:"manipulation_threshold"`
	VolatilityThreshold   int     `json:"volatility_threshold" mapstructure:"volatility_threshold"`
}

// Presets are the documented defaults per mode. Custom is the starting point
// for user-supplied thresholds; High Volume ignores thresholds entirely.
var Presets = map[Mode]Thresholds{
	ModeCustom: {
		MinMargin:             500,
		MinVolume:             100,
		MinUtility:            10000,
		SeasonThreshold:       0,
		ManipulationThreshold: 5,
		VolatilityThreshold:   6,
	},
	ModeLowRisk: {
		MinMargin:             200,
		MinVolume:             500,
		MinUtility:            5000,
		SeasonThreshold:       1.0,
		ManipulationThreshold: 2,
		VolatilityThreshold:   4,
	},
	ModeHighROI: {
		MinMargin:             1000,
		MinVolume:             50,
		MinUtility:            20000,
		SeasonThreshold:       0,
		ManipulationThreshold: 6,
		VolatilityThreshold:   8,
	},
	ModePassiveOvernight: {
		MinMargin:             2000,
		MinVolume:             20,
		MinUtility:            1000,
		SeasonThreshold:       0,
		ManipulationThreshold: 4,
		VolatilityThreshold:   6,
	},
	ModeHighVolume: {},
}

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeCustom, ModeLowRisk, ModeHighROI, ModePassiveOvernight, ModeHighVolume}
}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// ThresholdsFor returns the preset for mode, or custom when mode is Custom.
func ThresholdsFor(mode Mode, custom Thresholds) Thresholds {
	if mode == ModeCustom {
		return custom
	}
	return Presets[mode]
}
