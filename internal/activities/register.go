package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListProfilesActivity)
	w.RegisterActivity(a.DailyTipsForUserActivity)
	w.RegisterActivity(a.RefreshGlobalImpactActivity)
}
