package models

import (
	"strings"
	"time"
)

// Prediction is one completed leaf classification owned by a single user.
type Prediction struct {
	ID          uint      `gorm:"primaryKey" json:"id" example:"1"`
	CreatedAt   time.Time `gorm:"index" json:"created_at" example:"2024-01-01T00:00:00Z"`
	UserID      uint      `gorm:"not null;index" json:"user_id" example:"1"`
	DiseaseName string    `gorm:"type:varchar(255);not null;index" json:"disease_name" example:"Tomato_Early_blight"`
	ImagePath   string    `gorm:"type:text;not null" json:"image_path" example:"uploads/3f1c.jpg"`
	Remedy      string    `gorm:"type:text" json:"remedy" example:"Remove infected leaves and apply a copper fungicide."`
}

func (p *Prediction) TableName() string {
	return "predictions"
}

// IsHealthy reports whether the label describes a healthy leaf.
func (p *Prediction) IsHealthy() bool {
	return IsHealthyLabel(p.DiseaseName)
}

// IsHealthyLabel applies the case-insensitive "healthy" substring rule.
func IsHealthyLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "healthy")
}

// DisplayName turns a classifier label such as Tomato_Early_blight into
// human readable text.
func DisplayName(label string) string {
	return strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
}

// RemedyPlan is the structured treatment plan returned by the detailed
// remedy endpoint. Key names match the JSON object requested from the model.
type RemedyPlan struct {
	MedicineName string   `json:"medicineName" example:"Chlorothalonil"`
	HowToUse     string   `json:"howToUse" example:"Spray 2 ml per litre of water every 7 days."`
	Steps        []string `json:"steps"`
}

type DiseaseCount struct {
	Disease string `json:"disease" example:"Tomato_Early_blight"`
	Count   int64  `json:"count" example:"3"`
}

// DailyActivity is one calendar day of healthy/diseased counts. Day is only
// filled by the weekly report.
type DailyActivity struct {
	Date     string `json:"date" example:"2024-01-01"`
	Day      string `json:"day,omitempty" example:"Mon"`
	Healthy  int64  `json:"healthy" example:"1"`
	Diseased int64  `json:"diseased" example:"2"`
}

type DeletePredictionsRequest struct {
	IDs []uint `json:"ids"`
}

// PredictionEvent is published after a prediction has been stored.
type PredictionEvent struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	PredictionID uint      `json:"prediction_id"`
	UserID       uint      `json:"user_id"`
	DiseaseName  string    `json:"disease_name"`
	Healthy      bool      `json:"healthy"`
	OccurredAt   time.Time `json:"occurred_at"`
}

const EventPredictionCreated = "prediction.created"
