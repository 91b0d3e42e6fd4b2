package domain

// PhaseConfig describes one phase to seed, in journey order.
type PhaseConfig struct {
	PhaseType    string `json:"phase_type"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	DurationDays int    `json:"duration_days"`
}

var newEmployeeTemplate = []PhaseConfig{
	{PhaseType: "orientation", Title: "Orientation", Description: "Company introduction, policies and workplace tour.", DurationDays: 3},
	{PhaseType: "tools_setup", Title: "Tools & Access Setup", Description: "Accounts, hardware and required system access.", DurationDays: 2},
	{PhaseType: "role_training", Title: "Role Training", Description: "Core training for the responsibilities of the role.", DurationDays: 10},
	{PhaseType: "team_integration", Title: "Team Integration", Description: "Shadowing, pairing and first supervised tasks.", DurationDays: 7},
	{PhaseType: "probation_review", Title: "Probation Review", Description: "Review of onboarding outcomes with the manager.", DurationDays: 5},
}

var existingEmployeeTemplate = []PhaseConfig{
	{PhaseType: "goal_setting", Title: "Goal Setting", Description: "Agree on development goals for the cycle.", DurationDays: 5},
	{PhaseType: "skill_development", Title: "Skill Development", Description: "Training and practice toward the agreed goals.", DurationDays: 14},
	{PhaseType: "mentorship", Title: "Mentorship", Description: "Structured sessions with an assigned mentor.", DurationDays: 10},
	{PhaseType: "progress_review", Title: "Progress Review", Description: "Evaluation of goal progress with the manager.", DurationDays: 5},
}

// DefaultTemplate returns the phase seed for an employee type. The returned
// slice is a copy; callers may modify it.
func DefaultTemplate(t EmployeeType) []PhaseConfig {
	var src []PhaseConfig
	switch t {
	case EmployeeTypeNew:
		src = newEmployeeTemplate
	case EmployeeTypeExisting:
		src = existingEmployeeTemplate
	default:
		return nil
	}
	out := make([]PhaseConfig, len(src))
	copy(out, src)
	return out
}
