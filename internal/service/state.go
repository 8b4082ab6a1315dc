package service

import "github.com/noah-isme/classroom-skill-api/internal/models"

// DeriveSubmissionState maps the correlated submissions of a coursework item
// to its submission state.
func DeriveSubmissionState(subs []models.Submission) models.SubmissionState {
	if len(subs) == 0 {
		return models.SubmissionStateNotSubmitted
	}
	return models.SubmissionStateSubmitted
}

// LatestGradedSubmission returns the most recently added submission that
// carries a grade.
func LatestGradedSubmission(subs []models.Submission) (models.Submission, bool) {
	for i := len(subs) - 1; i >= 0; i-- {
		if subs[i].Graded() {
			return subs[i], true
		}
	}
	return models.Submission{}, false
}
