package activities

import "ecopulse/internal/models"

type ListProfilesOutput struct {
	Profiles []models.Profile
}

type DailyTipsUserInput struct {
	Profile models.Profile
}

// DailyTipsUserOutput is one user's outcome. Reason holds the gateway error
// class when the batch must stop, or the error text when the user failed.
type DailyTipsUserOutput struct {
	Outcome string
	Reason  string
}
