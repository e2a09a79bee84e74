package activities

import (
	"context"

	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/service"

	"go.temporal.io/sdk/activity"
)

type Activities struct {
	svc *service.Service
}

func New(svc *service.Service) *Activities {
	return &Activities{svc: svc}
}

func (a *Activities) ListProfilesActivity(ctx context.Context) (ListProfilesOutput, error) {
	profiles, err := a.svc.ListProfiles(ctx)
	if err != nil {
		return ListProfilesOutput{}, err
	}
	return ListProfilesOutput{Profiles: profiles}, nil
}

// DailyTipsForUserActivity never fails for per-user errors: they are reported
// in the output so the workflow can skip the user or stop the batch without
// Temporal retrying a rate-limited call.
func (a *Activities) DailyTipsForUserActivity(ctx context.Context, in DailyTipsUserInput) (DailyTipsUserOutput, error) {
	outcome, err := a.svc.DailyTipsForUser(ctx, in.Profile)
	out := DailyTipsUserOutput{Outcome: outcome}
	switch outcome {
	case service.TipsStopped:
		out.Reason = string(gateway.ClassifyError(err))
	case service.TipsFailed:
		out.Reason = err.Error()
		activity.GetLogger(ctx).Warn("daily tips failed for user", "user_id", in.Profile.ID, "error", err)
	}
	return out, nil
}

func (a *Activities) RefreshGlobalImpactActivity(ctx context.Context) (models.GlobalImpact, error) {
	return a.svc.RefreshGlobalImpact(ctx)
}
