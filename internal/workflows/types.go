package workflows

const (
	DailyTipsWorkflowID    = "eco-copilot-daily"
	GlobalImpactWorkflowID = "global-impact-refresh"
)

type DailyTipsInput struct {
	// MaxUsers bounds one run. Zero means every profile.
	MaxUsers int
}

type DailyTipsProgress struct {
	Total     int
	Visited   int
	Processed int
	Skipped   int
	Failed    int
	Stopped   string
}
