package models

type ProfileSummary struct {
	TotalEvents   int      `json:"total_events"`
	TotalSpend    float64  `json:"total_spend"`
	Categories    int      `json:"categories"`
	CategoryNames []string `json:"category_names"`
}

type Profile struct {
	User          Identity       `json:"user"`
	Registrations []Registration `json:"registrations"`
	Summary       ProfileSummary `json:"summary"`
}
