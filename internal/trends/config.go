package trends

import (
	"errors"
	"fmt"
)

// Config holds every threshold the detectors use. It is passed in explicitly
// so the heuristics can be exercised with different settings.
type Config struct {
	// SignificanceThreshold is the global severity cut applied after all
	// detectors have run.
	SignificanceThreshold float64

	SentimentShift SentimentShiftConfig
	TopicCluster   TopicClusterConfig
	VolumeSpike    VolumeSpikeConfig
	RecurringIssue RecurringIssueConfig
}

type SentimentShiftConfig struct {
	MinDays           int     // daily aggregates required
	RecentDays        int     // trailing days compared against the rest of the window
	MinDelta          float64 // required rise of the negative ratio
	MinRecentNegative int     // negative records required in the recent slice
	CountSaturation   float64 // recent negatives that add a full 1.0 to severity
	MaxConfidence     float64
}

type TopicClusterConfig struct {
	MinCount         int     // topic occurrences required
	MinShare         float64 // occurrences / total records required
	MinSeverity      float64 // detector-local emit cut, applied before the global cut
	VolumeSaturation float64 // occurrences giving a full volume score
	GeneralWeight    float64 // sentiment-score weight for the catch-all topic
	MaxConfidence    float64
}

type VolumeSpikeConfig struct {
	MinDays         int
	Multiplier      float64 // latest day must exceed Multiplier x window average
	MinRecentVolume int
	RatioSaturation float64 // latest/average ratio giving severity 1.0
	Confidence      float64
}

type RecurringIssueConfig struct {
	MinDays               int
	MinDayShare           float64 // share of window days a topic must appear on
	MinEstimatedNegatives float64
	NegativeSaturation    float64 // estimated negatives giving a full volume term
	Confidence            float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		SignificanceThreshold: 0.6,
		SentimentShift: SentimentShiftConfig{
			MinDays:           3,
			RecentDays:        2,
			MinDelta:          0.2,
			MinRecentNegative: 5,
			CountSaturation:   20,
			MaxConfidence:     0.9,
		},
		TopicCluster: TopicClusterConfig{
			MinCount:         5,
			MinShare:         0.15,
			MinSeverity:      0.5,
			VolumeSaturation: 20,
			GeneralWeight:    0.8,
			MaxConfidence:    0.95,
		},
		VolumeSpike: VolumeSpikeConfig{
			MinDays:         3,
			Multiplier:      2,
			MinRecentVolume: 10,
			RatioSaturation: 5,
			Confidence:      0.9,
		},
		RecurringIssue: RecurringIssueConfig{
			MinDays:               5,
			MinDayShare:           0.5,
			MinEstimatedNegatives: 3,
			NegativeSaturation:    10,
			Confidence:            0.8,
		},
	}
}

// Validate rejects configurations the detectors cannot run with.
func (c Config) Validate() error {
	var errs []error
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}

	unit("significance threshold", c.SignificanceThreshold)

	ss := c.SentimentShift
	if ss.RecentDays < 1 {
		errs = append(errs, fmt.Errorf("sentiment shift recent days must be at least 1, got %d", ss.RecentDays))
	}
	if ss.MinDays <= ss.RecentDays {
		errs = append(errs, fmt.Errorf("sentiment shift needs more days (%d) than its recent slice (%d)", ss.MinDays, ss.RecentDays))
	}
	positive("sentiment shift count saturation", ss.CountSaturation)
	unit("sentiment shift max confidence", ss.MaxConfidence)

	tc := c.TopicCluster
	unit("topic cluster min share", tc.MinShare)
	unit("topic cluster min severity", tc.MinSeverity)
	unit("topic cluster general weight", tc.GeneralWeight)
	unit("topic cluster max confidence", tc.MaxConfidence)
	positive("topic cluster volume saturation", tc.VolumeSaturation)

	vs := c.VolumeSpike
	if vs.MinDays < 1 {
		errs = append(errs, fmt.Errorf("volume spike min days must be at least 1, got %d", vs.MinDays))
	}
	positive("volume spike multiplier", vs.Multiplier)
	positive("volume spike ratio saturation", vs.RatioSaturation)
	unit("volume spike confidence", vs.Confidence)

	ri := c.RecurringIssue
	if ri.MinDays < 1 {
		errs = append(errs, fmt.Errorf("recurring issue min days must be at least 1, got %d", ri.MinDays))
	}
	unit("recurring issue min day share", ri.MinDayShare)
	positive("recurring issue negative saturation", ri.NegativeSaturation)
	unit("recurring issue confidence", ri.Confidence)

	return errors.Join(errs...)
}
