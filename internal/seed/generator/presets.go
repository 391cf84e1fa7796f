package generator

// Preset defines a named configuration for run generation.
type Preset string

const (
	// PresetDemo creates a small set of users with a few runs each.
	PresetDemo Preset = "demo"

	// PresetCohort creates a wider user base with varied pass counts.
	PresetCohort Preset = "cohort"

	// PresetLongitudinal creates few users with many repeated sittings.
	PresetLongitudinal Preset = "longitudinal"

	// PresetStressTest creates many minimal users for load testing.
	PresetStressTest Preset = "stress-test"
)

// PresetConfig holds the generation parameters for a preset.
type PresetConfig struct {
	// Number of users to generate
	Users int

	// Runs per user (min, max)
	RunsPerUserMin int
	RunsPerUserMax int

	// Pipeline passes per run (min, max)
	PassesMin int
	PassesMax int

	// Gaussian jitter applied to persona targets before discretization
	Jitter float64

	// Whether to rotate personas across users
	VaryPersonas bool

	// Whether to attach notes to seeded runs
	IncludeNotes bool
}

// GetPresetConfig returns the configuration for a preset.
func GetPresetConfig(preset Preset) PresetConfig {
	switch preset {
	case PresetDemo:
		return PresetConfig{
			Users:          3,
			RunsPerUserMin: 2,
			RunsPerUserMax: 3,
			PassesMin:      3,
			PassesMax:      3,
			Jitter:         0.15,
			VaryPersonas:   true,
			IncludeNotes:   true,
		}

	case PresetCohort:
		return PresetConfig{
			Users:          8,
			RunsPerUserMin: 1,
			RunsPerUserMax: 3,
			PassesMin:      1,
			PassesMax:      5,
			Jitter:         0.25,
			VaryPersonas:   true,
			IncludeNotes:   false,
		}

	case PresetLongitudinal:
		return PresetConfig{
			Users:          2,
			RunsPerUserMin: 8,
			RunsPerUserMax: 12,
			PassesMin:      3,
			PassesMax:      3,
			Jitter:         0.1,
			VaryPersonas:   true,
			IncludeNotes:   true,
		}

	case PresetStressTest:
		return PresetConfig{
			Users:          50,
			RunsPerUserMin: 1,
			RunsPerUserMax: 2,
			PassesMin:      1,
			PassesMax:      2,
			Jitter:         0.3,
			VaryPersonas:   true,
			IncludeNotes:   false,
		}

	default:
		// Default to demo preset
		return GetPresetConfig(PresetDemo)
	}
}
