package intensity

import (
	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// FusionConfig holds the weights and posture mapping used to derive stress
type FusionConfig struct {
	AngryWeight   float64 // Weight of the angry intensity
	FearWeight    float64 // Weight of the fear intensity
	SadWeight     float64 // Weight of the sad intensity
	PostureWeight float64 // Weight of the posture factor

	UprightSlope float64 // Torso slope at or above which the posture factor is 0
	SlopeScale   float64 // Factor points per unit of slope below UprightSlope
}

// DefaultFusionConfig returns the stress weighting used by the capture service
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		AngryWeight:   0.4,
		FearWeight:    0.3,
		SadWeight:     0.2,
		PostureWeight: 0.1,
		UprightSlope:  0.3,
		SlopeScale:    300,
	}
}

// Fuse turns one cycle's emotion scores and optional posture into an intensity map.
// Empty scores mean nothing was detected and produce an empty map without stress.
func Fuse(scores models.EmotionScores, posture *models.Posture) models.IntensityMap {
	return FuseWithConfig(scores, posture, DefaultFusionConfig())
}

// FuseWithConfig is Fuse with explicit weights
func FuseWithConfig(scores models.EmotionScores, posture *models.Posture, config FusionConfig) models.IntensityMap {
	result := make(models.IntensityMap, len(scores)+1)
	if len(scores) == 0 {
		return result
	}

	for label, score := range scores {
		result[label] = clampPercent(score)
	}

	factor := PostureFactorWithConfig(posture, config)

	stress := config.AngryWeight*result[models.Angry] +
		config.FearWeight*result[models.Fear] +
		config.SadWeight*result[models.Sad] +
		config.PostureWeight*factor

	result[models.Stress] = clampPercent(stress)
	return result
}

// PostureFactor maps torso slope to a 0-100 slouch estimate; nil posture gives 0
func PostureFactor(posture *models.Posture) float64 {
	return PostureFactorWithConfig(posture, DefaultFusionConfig())
}

// PostureFactorWithConfig is PostureFactor with an explicit slope mapping
func PostureFactorWithConfig(posture *models.Posture, config FusionConfig) float64 {
	if posture == nil {
		return 0
	}
	return clampPercent((config.UprightSlope - TorsoSlope(posture)) * config.SlopeScale)
}

// TorsoSlope returns the vertical distance from mean shoulder height to mean hip height
func TorsoSlope(posture *models.Posture) float64 {
	shoulderAvg := (posture.LeftShoulderY + posture.RightShoulderY) / 2
	hipAvg := (posture.LeftHipY + posture.RightHipY) / 2
	return hipAvg - shoulderAvg
}

// clampPercent bounds a value to [0, 100]. NaN collapses to 0.
func clampPercent(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
