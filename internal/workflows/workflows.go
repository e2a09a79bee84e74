package workflows

import (
	"time"

	"ecopulse/internal/activities"
	"ecopulse/internal/models"
	"ecopulse/internal/service"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetProgress = "GetProgress"

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
}

// DailyTipsWorkflow visits profiles one at a time and stops at the first
// rate-limit or quota outcome.
func DailyTipsWorkflow(ctx workflow.Context, input DailyTipsInput) (service.DailyTipsResult, error) {
	progress := DailyTipsProgress{}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (DailyTipsProgress, error) {
		return progress, nil
	}); err != nil {
		return service.DailyTipsResult{}, err
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions())
	logger := workflow.GetLogger(ctx)

	var list activities.ListProfilesOutput
	if err := workflow.ExecuteActivity(ctx, "ListProfilesActivity").Get(ctx, &list); err != nil {
		return service.DailyTipsResult{}, err
	}
	profiles := list.Profiles
	if input.MaxUsers > 0 && len(profiles) > input.MaxUsers {
		profiles = profiles[:input.MaxUsers]
	}
	progress.Total = len(profiles)

	out := service.DailyTipsResult{Success: true}
	for _, p := range profiles {
		var res activities.DailyTipsUserOutput
		if err := workflow.ExecuteActivity(ctx, "DailyTipsForUserActivity", activities.DailyTipsUserInput{Profile: p}).Get(ctx, &res); err != nil {
			logger.Warn("daily tips activity failed", "user_id", p.ID, "error", err)
			progress.Failed++
			progress.Visited++
			continue
		}
		progress.Visited++
		switch res.Outcome {
		case service.TipsProcessed:
			progress.Processed++
			out.ProcessedUsers++
			out.TipsCreated++
		case service.TipsSkipped:
			progress.Skipped++
		case service.TipsStopped:
			progress.Stopped = res.Reason
			out.StoppedReason = res.Reason
			logger.Warn("daily tips stopped", "user_id", p.ID, "reason", res.Reason)
			return out, nil
		default:
			progress.Failed++
		}
	}
	return out, nil
}

func GlobalImpactWorkflow(ctx workflow.Context) (models.GlobalImpact, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())
	var g models.GlobalImpact
	if err := workflow.ExecuteActivity(ctx, "RefreshGlobalImpactActivity").Get(ctx, &g); err != nil {
		return models.GlobalImpact{}, err
	}
	return g, nil
}
