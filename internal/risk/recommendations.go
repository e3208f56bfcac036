package risk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/pkg/models"
)

// Sports with heavy cutting and pivoting load on the knee.
var pivotingSports = map[string]bool{
	"football":   true,
	"soccer":     true,
	"basketball": true,
	"handball":   true,
	"netball":    true,
}

// Recommender generates mitigation advice from a scored result. Pure
// and stateless; the same result always yields the same advice.
type Recommender struct {
	cfg config.Recommendations
}

// NewRecommender creates a recommender with the given thresholds.
func NewRecommender(cfg config.Recommendations) *Recommender {
	return &Recommender{cfg: cfg}
}

// Generate returns up to cfg.Max recommendations ordered by the risk
// contribution of the component that triggered each one. Component
// advice comes first, then sport, overall-level and data-quality notes.
func (r *Recommender) Generate(result *models.RiskResult, profile models.UserProfile) []string {
	recs := make([]string, 0, r.cfg.Max)

	comps := make([]models.RiskComponent, len(result.Components))
	copy(comps, result.Components)
	sort.SliceStable(comps, func(i, j int) bool {
		return comps[i].Contribution > comps[j].Contribution
	})

	for _, c := range comps {
		if c.Missing {
			continue
		}
		threshold, ok := r.cfg.ElevatedThresholds[c.Name]
		if !ok || c.Index <= threshold {
			continue
		}
		if msg := r.componentAdvice(c, profile); msg != "" {
			recs = append(recs, msg)
		}
	}

	if sport := strings.ToLower(profile.Sport); pivotingSports[sport] {
		recs = append(recs, fmt.Sprintf(
			"For %s: focus on landing mechanics, deceleration training and core stability exercises.", sport))
	}

	if result.Level == models.RiskHigh {
		recs = append(recs,
			"Overall risk is high. Consider a structured ACL injury prevention program such as FIFA 11+ or PEP.")
	}

	if result.Confidence == models.ConfidenceLow {
		recs = append(recs,
			"Data quality is limited. Sync your wearable daily for a more reliable risk assessment.")
	}

	if r.cfg.Max > 0 && len(recs) > r.cfg.Max {
		recs = recs[:r.cfg.Max]
	}
	return recs
}

func (r *Recommender) componentAdvice(c models.RiskComponent, profile models.UserProfile) string {
	switch c.Name {
	case models.FeatureLoad:
		if c.Index > 0.7 {
			return "Training volume is very high. Reduce step count by 15-20% for the next 48 hours to allow recovery."
		}
		return "Training load is elevated. Monitor for signs of fatigue and ensure adequate rest days."

	case models.FeatureFatigue:
		return "Fatigue markers are elevated. Schedule a complete rest day within the next 48 hours and target 7-9 hours of sleep."

	case models.FeatureIntensity:
		return "High-intensity training is frequent. Incorporate more low-intensity active recovery sessions."

	case models.FeatureBMI:
		if profile.HasBodyMetrics() && profile.BMI() < 18.5 {
			return fmt.Sprintf("BMI is low (%.1f). Ensure adequate nutrition to support training demands.", profile.BMI())
		}
		if profile.HasBodyMetrics() {
			return fmt.Sprintf("BMI is elevated (%.1f). Consider consulting a sports nutritionist for weight management.", profile.BMI())
		}
		return ""

	case models.FeatureHistory:
		if profile.RehabStatus == models.RehabActive {
			return "Continue prescribed rehabilitation exercises. Compliance is critical for preventing re-injury."
		}
		return "Previous ACL injury on record. Maintain neuromuscular training and warm up before direction-change work."

	case models.FeaturePain:
		if profile.KneePainScore >= 5 {
			return fmt.Sprintf("Knee pain is significant (%d/10). Consult a sports medicine physician or physical therapist.", profile.KneePainScore)
		}
		return fmt.Sprintf("Moderate knee pain reported (%d/10). Monitor closely and reduce high-impact activities.", profile.KneePainScore)
	}
	return ""
}
