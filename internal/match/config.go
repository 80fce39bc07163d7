package match

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Weights sets how much each feature contributes to the aggregate score.
type Weights struct {
	Name   float64 `toml:"name"`
	Set    float64 `toml:"set"`
	Number float64 `toml:"number"`
	Rarity float64 `toml:"rarity"`
}

// DefaultWeights favours the name, then set and number, then rarity.
func DefaultWeights() Weights {
	return Weights{Name: 3, Set: 2, Number: 2, Rarity: 1}
}

// Thresholds holds the calibrated cut-offs. They were chosen empirically
// against the production catalog and are kept overridable.
type Thresholds struct {
	// Minimum aggregate score to accept any match.
	Accept float64 `toml:"accept"`
	// Minimum aggregate score when the query carried a denominator.
	AcceptWithDenominator float64 `toml:"accept_with_denominator"`
	// Subtracted from the aggregate when the denominator disagrees.
	DenominatorPenalty float64 `toml:"denominator_penalty"`
	// Similarity at which a feature counts as matched.
	FeatureMatch float64 `toml:"feature_match"`
	// Matched/considered feature ratios for the high and medium tiers.
	HighRatio   float64 `toml:"high_ratio"`
	MediumRatio float64 `toml:"medium_ratio"`
	// Largest tolerated gap between the stated year and the set's year.
	YearTolerance int `toml:"year_tolerance"`
	// Length of the compacted name prefix one side must contain.
	NamePrefix int `toml:"name_prefix"`
	// Neighbour radius for fuzzy number recovery.
	FuzzyRadius int `toml:"fuzzy_radius"`
	// Fuzzy recovery is skipped for sets printed with at most this many cards.
	VintageMaxTotal int `toml:"vintage_max_total"`
	// Reject a final match whose printed total contradicts the query.
	RejectDenominatorMismatch bool `toml:"reject_denominator_mismatch"`
}

// MaxFuzzyRadius caps the neighbour radius wherever it is configured.
const MaxFuzzyRadius = 10

// DefaultThresholds returns the production calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Accept:                    0.6,
		AcceptWithDenominator:     0.7,
		DenominatorPenalty:        1.5,
		FeatureMatch:              0.8,
		HighRatio:                 0.8,
		MediumRatio:               0.5,
		YearTolerance:             3,
		NamePrefix:                5,
		FuzzyRadius:               3,
		VintageMaxTotal:           132,
		RejectDenominatorMismatch: true,
	}
}

// Settings bundles weights and thresholds as they appear in the TOML file:
//
//	[weights]
//	name = 3.0
//
//	[thresholds]
//	accept = 0.65
type Settings struct {
	Weights    Weights    `toml:"weights"`
	Thresholds Thresholds `toml:"thresholds"`
}

// DefaultSettings returns the default weights and thresholds.
func DefaultSettings() Settings {
	return Settings{Weights: DefaultWeights(), Thresholds: DefaultThresholds()}
}

// LoadSettings reads overrides from a TOML file on top of the defaults.
// An empty path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	file, err := os.Open(path) //#nosec G304 -- operator supplied config path
	if err != nil {
		return settings, fmt.Errorf("open matching settings: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&settings); err != nil {
		return settings, fmt.Errorf("parse matching settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Validate rejects settings that would make every match fail or pass.
func (s Settings) Validate() error {
	w := s.Weights
	if w.Name < 0 || w.Set < 0 || w.Number < 0 || w.Rarity < 0 {
		return errors.New("matching weights must not be negative")
	}
	if w.Name+w.Set+w.Number+w.Rarity == 0 {
		return errors.New("at least one matching weight must be positive")
	}
	t := s.Thresholds
	for name, v := range map[string]float64{
		"accept":                  t.Accept,
		"accept_with_denominator": t.AcceptWithDenominator,
		"feature_match":           t.FeatureMatch,
		"high_ratio":              t.HighRatio,
		"medium_ratio":            t.MediumRatio,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s must be within [0,1], got %v", name, v)
		}
	}
	if t.MediumRatio > t.HighRatio {
		return errors.New("medium_ratio must not exceed high_ratio")
	}
	if t.YearTolerance < 0 || t.NamePrefix < 0 || t.FuzzyRadius < 0 {
		return errors.New("year_tolerance, name_prefix and fuzzy_radius must not be negative")
	}
	if t.FuzzyRadius > MaxFuzzyRadius {
		return fmt.Errorf("fuzzy_radius must not exceed %d, got %d", MaxFuzzyRadius, t.FuzzyRadius)
	}
	return nil
}
