package gorm

import (
	"time"

	"github.com/aclguard/backend/pkg/models"
)

// DailyMetric is the GORM row for daily wearable metrics.
type DailyMetric struct {
	UserID               string  `gorm:"primaryKey;size:128"`
	Date                 string  `gorm:"primaryKey;size:10"`
	Steps                int     `gorm:"not null;default:0"`
	DistanceKM           float64 `gorm:"not null;default:0"`
	ActiveMinutes        int     `gorm:"not null;default:0"`
	PeakIntensityMinutes int     `gorm:"not null;default:0"`
	RestingHeartRate     int     `gorm:"not null;default:0"`
	SleepHours           float64 `gorm:"not null;default:0"`
	SleepEfficiency      float64 `gorm:"not null;default:0"`
	Calories             int     `gorm:"not null;default:0"`
}

// TableName overrides the GORM default.
func (DailyMetric) TableName() string { return "daily_metrics" }

func (r *DailyMetric) toModel() models.DailyMetric {
	return models.DailyMetric{
		UserID:               r.UserID,
		Date:                 r.Date,
		Steps:                r.Steps,
		DistanceKM:           r.DistanceKM,
		ActiveMinutes:        r.ActiveMinutes,
		PeakIntensityMinutes: r.PeakIntensityMinutes,
		RestingHeartRate:     r.RestingHeartRate,
		SleepHours:           r.SleepHours,
		SleepEfficiency:      r.SleepEfficiency,
		Calories:             r.Calories,
	}
}

func metricRow(m *models.DailyMetric) DailyMetric {
	return DailyMetric{
		UserID:               m.UserID,
		Date:                 m.Date,
		Steps:                m.Steps,
		DistanceKM:           m.DistanceKM,
		ActiveMinutes:        m.ActiveMinutes,
		PeakIntensityMinutes: m.PeakIntensityMinutes,
		RestingHeartRate:     m.RestingHeartRate,
		SleepHours:           m.SleepHours,
		SleepEfficiency:      m.SleepEfficiency,
		Calories:             m.Calories,
	}
}

// UserProfile is the GORM row for the static per-user context.
type UserProfile struct {
	UserID            string     `gorm:"primaryKey;size:128"`
	HeightCM          float64    `gorm:"not null;default:0"`
	WeightKG          float64    `gorm:"not null;default:0"`
	Age               int        `gorm:"not null;default:0"`
	Sex               string     `gorm:"size:8;not null;default:''"`
	Sport             string     `gorm:"size:64;not null;default:''"`
	LimbDominance     string     `gorm:"size:8;not null;default:''"`
	PriorACLInjury    bool       `gorm:"not null;default:false"`
	InjuryDate        *time.Time `gorm:"type:date"`
	KneePainScore     int        `gorm:"not null;default:0"`
	RehabStatus       string     `gorm:"size:16;not null;default:'none'"`
	BaselineRestingHR float64    `gorm:"not null;default:0"`
}

// TableName overrides the GORM default.
func (UserProfile) TableName() string { return "user_profiles" }

func (r *UserProfile) toModel() models.UserProfile {
	return models.UserProfile{
		UserID:            r.UserID,
		HeightCM:          r.HeightCM,
		WeightKG:          r.WeightKG,
		Age:               r.Age,
		Sex:               models.Sex(r.Sex),
		Sport:             r.Sport,
		LimbDominance:     models.LimbDominance(r.LimbDominance),
		PriorACLInjury:    r.PriorACLInjury,
		InjuryDate:        r.InjuryDate,
		KneePainScore:     r.KneePainScore,
		RehabStatus:       models.RehabStatus(r.RehabStatus),
		BaselineRestingHR: r.BaselineRestingHR,
	}
}

func profileRow(p *models.UserProfile) UserProfile {
	return UserProfile{
		UserID:            p.UserID,
		HeightCM:          p.HeightCM,
		WeightKG:          p.WeightKG,
		Age:               p.Age,
		Sex:               string(p.Sex),
		Sport:             p.Sport,
		LimbDominance:     string(p.LimbDominance),
		PriorACLInjury:    p.PriorACLInjury,
		InjuryDate:        p.InjuryDate,
		KneePainScore:     p.KneePainScore,
		RehabStatus:       string(p.RehabStatus),
		BaselineRestingHR: p.BaselineRestingHR,
	}
}

// Feedback is the GORM row for prediction feedback with input snapshots.
type Feedback struct {
	UserID               string    `gorm:"primaryKey;size:128"`
	Date                 string    `gorm:"primaryKey;size:10"`
	Steps                int       `gorm:"not null;default:0"`
	DistanceKM           float64   `gorm:"not null;default:0"`
	ActiveMinutes        int       `gorm:"not null;default:0"`
	PeakIntensityMinutes int       `gorm:"not null;default:0"`
	RestingHeartRate     int       `gorm:"not null;default:0"`
	SleepHours           float64   `gorm:"not null;default:0"`
	SleepEfficiency      float64   `gorm:"not null;default:0"`
	HeightCM             float64   `gorm:"not null;default:0"`
	WeightKG             float64   `gorm:"not null;default:0"`
	Age                  int       `gorm:"not null;default:0"`
	Sex                  string    `gorm:"size:8;not null;default:''"`
	Sport                string    `gorm:"size:64;not null;default:''"`
	PriorACLInjury       bool      `gorm:"not null;default:false"`
	KneePainScore        int       `gorm:"not null;default:0"`
	FormulaRisk          float64   `gorm:"not null"`
	Accurate             bool      `gorm:"not null;index"`
	CreatedAt            time.Time `gorm:"not null"`
}

// TableName overrides the GORM default.
func (Feedback) TableName() string { return "feedback" }

func (r *Feedback) toModel() models.FeedbackRecord {
	return models.FeedbackRecord{
		UserID:               r.UserID,
		Date:                 r.Date,
		Steps:                r.Steps,
		DistanceKM:           r.DistanceKM,
		ActiveMinutes:        r.ActiveMinutes,
		PeakIntensityMinutes: r.PeakIntensityMinutes,
		RestingHeartRate:     r.RestingHeartRate,
		SleepHours:           r.SleepHours,
		SleepEfficiency:      r.SleepEfficiency,
		HeightCM:             r.HeightCM,
		WeightKG:             r.WeightKG,
		Age:                  r.Age,
		Sex:                  models.Sex(r.Sex),
		Sport:                r.Sport,
		PriorACLInjury:       r.PriorACLInjury,
		KneePainScore:        r.KneePainScore,
		FormulaRisk:          r.FormulaRisk,
		Accurate:             r.Accurate,
		CreatedAt:            r.CreatedAt,
	}
}

func feedbackRow(rec *models.FeedbackRecord) Feedback {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return Feedback{
		UserID:               rec.UserID,
		Date:                 rec.Date,
		Steps:                rec.Steps,
		DistanceKM:           rec.DistanceKM,
		ActiveMinutes:        rec.ActiveMinutes,
		PeakIntensityMinutes: rec.PeakIntensityMinutes,
		RestingHeartRate:     rec.RestingHeartRate,
		SleepHours:           rec.SleepHours,
		SleepEfficiency:      rec.SleepEfficiency,
		HeightCM:             rec.HeightCM,
		WeightKG:             rec.WeightKG,
		Age:                  rec.Age,
		Sex:                  string(rec.Sex),
		Sport:                rec.Sport,
		PriorACLInjury:       rec.PriorACLInjury,
		KneePainScore:        rec.KneePainScore,
		FormulaRisk:          rec.FormulaRisk,
		Accurate:             rec.Accurate,
		CreatedAt:            createdAt,
	}
}
