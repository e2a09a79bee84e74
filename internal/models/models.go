package models

import (
	"encoding/json"
	"time"
)

type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	EcoScore  *int      `json:"eco_score"`
	CreatedAt time.Time `json:"created_at"`
}

type Metric struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Timestamp   time.Time `json:"timestamp"`
	EnergyUsage float64   `json:"energy_usage"`
	WaterUsage  float64   `json:"water_usage"`
	CO2Emission float64   `json:"co2_emission"`
}

type Bill struct {
	ID                     string    `json:"id"`
	UserID                 string    `json:"user_id"`
	Month                  string    `json:"month"`
	TotalAmount            float64   `json:"total_amount"`
	EnergyUsage            float64   `json:"energy_usage"`
	WaterUsage             float64   `json:"water_usage"`
	AISummary              *string   `json:"ai_summary"`
	UploadedFile           *string   `json:"uploaded_file"`
	PredictedNextBill      *float64  `json:"predicted_next_bill"`
	PredictedSavingPercent *float64  `json:"predicted_saving_percent"`
	CreatedAt              time.Time `json:"created_at"`
}

type Goal struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	TargetEnergySaving float64   `json:"target_energy_saving"`
	TargetWaterSaving  float64   `json:"target_water_saving"`
	CreatedAt          time.Time `json:"created_at"`
}

type Forecast struct {
	ID                   int64     `json:"id"`
	UserID               string    `json:"user_id"`
	PredictedEnergyKWh   float64   `json:"predicted_energy_kwh"`
	PredictedWaterLiters float64   `json:"predicted_water_liters"`
	PredictedCO2Kg       float64   `json:"predicted_co2_kg"`
	PeriodStart          string    `json:"period_start"`
	PeriodEnd            string    `json:"period_end"`
	CreatedAt            time.Time `json:"created_at"`
}

type Report struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	AIInsight       string    `json:"ai_insight"`
	PredictedSaving float64   `json:"predicted_saving"`
	CreatedAt       time.Time `json:"created_at"`
}

type Achievement struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
}

type EcoPoints struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Points     int       `json:"points"`
	BadgeLevel string    `json:"badge_level"`
	StreakDays int       `json:"streak_days"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type LeaderboardEntry struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	EcoScore   *int   `json:"eco_score"`
	Points     int    `json:"points"`
	BadgeLevel string `json:"badge_level"`
	StreakDays int    `json:"streak_days"`
}

type Challenge struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	RewardPoints int       `json:"reward_points"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Team struct {
	ID          int64     `json:"id"`
	TeamName    string    `json:"team_name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int       `json:"member_count"`
}

type TeamMember struct {
	ID       int64     `json:"id"`
	TeamID   int64     `json:"team_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Intervention is one step of a prescriptive plan.
type Intervention struct {
	Type            string   `json:"type"`
	Window          string   `json:"window"`
	ExpectedKg      float64  `json:"expected_kg"`
	ExpectedWaterKl *float64 `json:"expected_water_kl,omitempty"`
}

type Policy struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Rationale     string         `json:"rationale"`
	Interventions []Intervention `json:"interventions"`
	CreatedAt     time.Time      `json:"created_at"`
	DTRuns        []DTRun        `json:"dt_runs,omitempty"`
}

// DTRun is a digital-twin simulation of a policy.
type DTRun struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	PolicyID        string          `json:"policy_id"`
	TotalKg         float64         `json:"total_kg"`
	TotalWaterKl    float64         `json:"total_water_kl"`
	ConfidenceLevel float64         `json:"confidence_level"`
	SimulationItems json.RawMessage `json:"simulation_items"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SCMEdge is a directed edge of a user's structural causal model.
type SCMEdge struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	SourceNode string    `json:"source_node"`
	TargetNode string    `json:"target_node"`
	Weight     float64   `json:"weight"`
	CreatedAt  time.Time `json:"created_at"`
}

type Blueprint struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	PlotSize            float64   `json:"plot_size"`
	PlotUnit            string    `json:"plot_unit"`
	FacingDirection     string    `json:"facing_direction"`
	NumFloors           int       `json:"num_floors"`
	NumRooms            int       `json:"num_rooms"`
	GreenFeatures       []string  `json:"green_features"`
	BlueprintImageURL   *string   `json:"blueprint_image_url"`
	EnergyInsights      string    `json:"energy_insights"`
	SustainabilityScore float64   `json:"sustainability_score"`
	VastuRating         float64   `json:"vastu_rating"`
	AIAnalysis          string    `json:"ai_analysis"`
	CreatedAt           time.Time `json:"created_at"`
}

type ImageAnalysis struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mode      string    `json:"mode"`
	Prompt    string    `json:"prompt"`
	Analysis  string    `json:"analysis"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type AgentLog struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Summary   string    `json:"summary"`
	AIAction  string    `json:"ai_action"`
	CreatedAt time.Time `json:"created_at"`
}

type Feedback struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	ReportID     *string   `json:"report_id"`
	FeedbackType string    `json:"feedback_type"`
	CreatedAt    time.Time `json:"created_at"`
}

type GlobalImpact struct {
	ID            int       `json:"id"`
	TotalUsers    int       `json:"total_users"`
	TotalCO2Saved float64   `json:"total_co2_saved"`
	LastUpdated   time.Time `json:"last_updated"`
}

// DailyReward is the per-user write set of the daily copilot batch.
type DailyReward struct {
	UserID   string
	Summary  string
	Tips     string
	Points   int
	EcoScore int
}

// PolicyReward is the write set applied when a user adopts a plan.
type PolicyReward struct {
	UserID           string
	Points           int
	AchievementTitle string
	AchievementDesc  string
	LogSummary       string
}
