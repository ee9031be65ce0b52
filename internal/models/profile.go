// internal/models/profile.go
package models

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very_active"
)

type Goal string

const (
	WeightLoss Goal = "weight_loss"
	Maintain   Goal = "maintain"
	WeightGain Goal = "weight_gain"
)

// ClinicalStatus is resolved outside the planner from a clinical report.
type ClinicalStatus string

const (
	StatusNormal      ClinicalStatus = "normal"
	StatusPrediabetes ClinicalStatus = "prediabetes"
	StatusDiabetes    ClinicalStatus = "diabetes"
)

func (s ClinicalStatus) Valid() bool {
	switch s {
	case StatusNormal, StatusPrediabetes, StatusDiabetes:
		return true
	}
	return false
}

type UserProfile struct {
	ID            string         `json:"user_id,omitempty"`
	Name          string         `json:"name,omitempty"`
	Age           float64        `json:"age"`
	WeightKg      float64        `json:"weight_kg"`
	HeightCm      float64        `json:"height_cm"`
	Gender        Gender         `json:"gender"`
	ActivityLevel ActivityLevel  `json:"activity_level"`
	Goal          Goal           `json:"goal"`
	Status        ClinicalStatus `json:"clinical_status,omitempty"`
}
