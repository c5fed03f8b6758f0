package trends

import (
	"fmt"
	"math"

	"github.com/julianstephens/trendlit/internal/models"
)

// VolumeSpike compares the most recent day's volume with the window mean.
// It has no per-record breakdown: the primary topic is always the catch-all
// and every affected record is reported as neutral.
type VolumeSpike struct {
	cfg VolumeSpikeConfig
}

func NewVolumeSpike(cfg VolumeSpikeConfig) *VolumeSpike {
	return &VolumeSpike{cfg: cfg}
}

func (v *VolumeSpike) Name() string { return string(models.TrendVolumeSpike) }

func (v *VolumeSpike) Detect(w Window) Outcome {
	aggs := w.Aggregates
	if len(aggs) < v.cfg.MinDays {
		return insufficientData(v.Name(), v.cfg.MinDays, len(aggs))
	}
	if err := validateAggregates(aggs); err != nil {
		return failed(v.Name(), err)
	}

	sum := 0
	for _, a := range aggs {
		sum += a.Total
	}
	avg := float64(sum) / float64(len(aggs))
	if avg == 0 {
		return noSignal(v.Name(), "no feedback in window")
	}

	latest := aggs[len(aggs)-1]
	recent := latest.Total
	if float64(recent) <= v.cfg.Multiplier*avg {
		return noSignal(v.Name(), "latest volume %d within %.1fx of average %.1f", recent, v.cfg.Multiplier, avg)
	}
	if recent < v.cfg.MinRecentVolume {
		return noSignal(v.Name(), "latest volume %d below minimum %d", recent, v.cfg.MinRecentVolume)
	}

	spike := float64(recent) / avg
	return signal(v.Name(), []models.TrendAnalysis{{
		TrendType:             models.TrendVolumeSpike,
		Confidence:            v.cfg.Confidence,
		AffectedFeedbackCount: recent,
		PrimaryTopics:         []models.Topic{models.TopicGeneral},
		SentimentDistribution: sentimentCounts(0, 0, recent),
		KeyIndicators: []string{
			fmt.Sprintf("%d feedback items on %s vs %.1f daily average", recent, latest.Date.Format("2006-01-02"), avg),
			fmt.Sprintf("Volume is %.1fx the window average", spike),
		},
		TimePeriod:    w.Period,
		SeverityScore: math.Min(1, spike/v.cfg.RatioSaturation),
	}})
}
