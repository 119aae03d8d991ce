package model

import "slices"

// Driver is the primary category of AI-related job anxiety.
type Driver string

const (
	DriverJobLoss      Driver = "job_loss"
	DriverValueThreat  Driver = "value_threat"
	DriverSkillErosion Driver = "skill_erosion"

	// DefaultDriver is used whenever a driver cannot be inferred or validated.
	DefaultDriver = DriverValueThreat
)

// Drivers lists the closed driver enumeration in canonical order.
var Drivers = []Driver{DriverJobLoss, DriverValueThreat, DriverSkillErosion}

func (d Driver) Valid() bool {
	return slices.Contains(Drivers, d)
}

// Band is the neuroticism severity tier.
type Band string

const (
	BandLow  Band = "low"
	BandMid  Band = "mid"
	BandHigh Band = "high"
)

var Bands = []Band{BandLow, BandMid, BandHigh}

func (b Band) Valid() bool {
	return slices.Contains(Bands, b)
}

// ChatSummary is the structured reduction of a chat transcript.
type ChatSummary struct {
	Driver            Driver   `json:"driver"`
	IntensityGuess    int      `json:"intensity_guess_0_10"`
	UnhelpfulThoughts []string `json:"unhelpful_thoughts"`
	Reframe           string   `json:"reframe"`
	SuggestedActions  []string `json:"suggested_actions"`
	LastError         string   `json:"last_error,omitempty"`
}

// ActionCard is a short, self-contained intervention from the action library.
type ActionCard struct {
	Title           string   `json:"title"`
	Driver          Driver   `json:"driver"`
	NeuroticismBand Band     `json:"neuroticism_band"`
	Goal            string   `json:"goal"`
	TimeMinutes     int      `json:"time_minutes"`
	Steps           []string `json:"steps"`
	SuccessCriteria string   `json:"success_criteria"`
	FallbackIfStuck string   `json:"fallback_if_stuck"`
}
