// Package config holds simulation tuning and process settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every gameplay constant. Rates are per tick unless noted.
type Tuning struct {
	TicksPerSecond int `yaml:"ticks_per_second"`

	// Need tiers.
	NeedLow  float64 `yaml:"need_low"`
	NeedBad  float64 `yaml:"need_bad"`
	NeedMax  float64 `yaml:"need_max"`
	Baseline float64 `yaml:"baseline"` // Starting value of tired/bored/hungry/needy

	// Accrual.
	FatigueRate     float64 `yaml:"fatigue_rate"`
	BoredomRate     float64 `yaml:"boredom_rate"`
	HungerRate      float64 `yaml:"hunger_rate"`
	BladderRate     float64 `yaml:"bladder_rate"`
	SickGrowth      float64 `yaml:"sick_growth"`       // Geometric factor while sick > 0
	SickOnsetChance float64 `yaml:"sick_onset_chance"` // Per tick while sick == 0

	// Activity effects.
	SleepRecovery float64 `yaml:"sleep_recovery"`
	PlayRate      float64 `yaml:"play_rate"`
	PlayFatigue   float64 `yaml:"play_fatigue"`
	FeedRate      float64 `yaml:"feed_rate"`
	EatBoredom    float64 `yaml:"eat_boredom"`
	EatBladder    float64 `yaml:"eat_bladder"`
	RelieveRate   float64 `yaml:"relieve_rate"`
	CureFactor    float64 `yaml:"cure_factor"` // Hunger and fatigue are multiplied by this on cure

	// Minimum activity durations in seconds.
	SleepMinSeconds float64 `yaml:"sleep_min_seconds"`
	PlayMinSeconds  float64 `yaml:"play_min_seconds"`
	EatMinSeconds   float64 `yaml:"eat_min_seconds"`
	PeeMinSeconds   float64 `yaml:"pee_min_seconds"`

	// Movement.
	Speed            float64 `yaml:"speed"` // Pixels per tick
	ArriveDistance   float64 `yaml:"arrive_distance"`
	CompassSteps     int     `yaml:"compass_steps"`
	StuckTicks       int     `yaml:"stuck_ticks"` // Blocked ticks before a walk is abandoned
	SeekRadius       float64 `yaml:"seek_radius"`
	UrgentSeekRadius float64 `yaml:"urgent_seek_radius"`
	WanderChance     float64 `yaml:"wander_chance"`
	WanderRadius     float64 `yaml:"wander_radius"`
	KittenSize       float64 `yaml:"kitten_size"` // Footprint edge in pixels

	// Happiness deltas reported to the game.
	DeathPenalty    float64 `yaml:"death_penalty"`
	MessPenalty     float64 `yaml:"mess_penalty"`
	SicknessPenalty float64 `yaml:"sickness_penalty"`
	CollapsePenalty float64 `yaml:"collapse_penalty"`
	BoredomPenalty  float64 `yaml:"boredom_penalty"`
	ContentGain     float64 `yaml:"content_gain"` // Per tick per kitten with every need below LOW

	// Game.
	StartingHappiness float64 `yaml:"starting_happiness"`
	StartingMoney     int     `yaml:"starting_money"`
	StartingKittens   int     `yaml:"starting_kittens"`
	EventLogSize      int     `yaml:"event_log_size"`
}

// DefaultTuning returns the shipped balance.
func DefaultTuning() Tuning {
	return Tuning{
		TicksPerSecond: 60,

		NeedLow:  25,
		NeedBad:  75,
		NeedMax:  100,
		Baseline: 10,

		FatigueRate:     0.010,
		BoredomRate:     0.015,
		HungerRate:      0.012,
		BladderRate:     0.008,
		SickGrowth:      0.0005,
		SickOnsetChance: 0.00002,

		SleepRecovery: 0.25,
		PlayRate:      0.4,
		PlayFatigue:   0.02,
		FeedRate:      0.5,
		EatBoredom:    0.05,
		EatBladder:    0.05,
		RelieveRate:   0.8,
		CureFactor:    0.5,

		SleepMinSeconds: 5,
		PlayMinSeconds:  3,
		EatMinSeconds:   2,
		PeeMinSeconds:   1.5,

		Speed:            1.5,
		ArriveDistance:   2,
		CompassSteps:     8,
		StuckTicks:       90,
		SeekRadius:       320,
		UrgentSeekRadius: 4096,
		WanderChance:     0.004,
		WanderRadius:     192,
		KittenSize:       24,

		DeathPenalty:    25,
		MessPenalty:     5,
		SicknessPenalty: 10,
		CollapsePenalty: 3,
		BoredomPenalty:  2,
		ContentGain:     0.001,

		StartingHappiness: 50,
		StartingMoney:     100,
		StartingKittens:   3,
		EventLogSize:      1000,
	}
}

// TickSeconds returns the duration of one tick in seconds.
func (t Tuning) TickSeconds() float64 {
	return 1 / float64(t.TicksPerSecond)
}

// Validate checks the invariants the simulation relies on.
func (t Tuning) Validate() error {
	var errs []error
	if t.TicksPerSecond <= 0 {
		errs = append(errs, errors.New("ticks_per_second must be positive"))
	}
	if !(0 < t.NeedLow && t.NeedLow < t.NeedBad && t.NeedBad < t.NeedMax) {
		errs = append(errs, fmt.Errorf("need tiers must satisfy 0 < low < bad < max, got %v/%v/%v",
			t.NeedLow, t.NeedBad, t.NeedMax))
	}
	if t.CompassSteps < 2 {
		errs = append(errs, errors.New("compass_steps must be at least 2"))
	}
	if t.Speed <= 0 {
		errs = append(errs, errors.New("speed must be positive"))
	}
	if t.KittenSize <= 0 {
		errs = append(errs, errors.New("kitten_size must be positive"))
	}
	if t.SleepMinSeconds <= 0 || t.PlayMinSeconds <= 0 || t.EatMinSeconds <= 0 || t.PeeMinSeconds <= 0 {
		errs = append(errs, errors.New("minimum activity durations must be positive"))
	}
	if t.SeekRadius > t.UrgentSeekRadius {
		errs = append(errs, errors.New("seek_radius must not exceed urgent_seek_radius"))
	}
	return errors.Join(errs...)
}

// LoadTuning reads a YAML tuning file over the defaults. Absent keys keep
// their default values.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
