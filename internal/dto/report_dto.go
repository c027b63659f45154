package dto

// WeeklyReportSummary describes one Friday-ending week that has evaluations.
type WeeklyReportSummary struct {
	WeekNumber    int    `json:"week_number"`
	FridayDate    int64  `json:"friday_date"`
	FormattedDate string `json:"formatted_date"`
	StudentCount  int    `json:"student_count"`
}

// WeeklyReportStudent aggregates one student's points within a week.
type WeeklyReportStudent struct {
	StudentID        string         `json:"student_id"`
	StudentCode      string         `json:"student_code"`
	EnglishName      string         `json:"english_name"`
	ChineseName      string         `json:"chinese_name"`
	Grade            int            `json:"grade"`
	PointsByCategory map[string]int `json:"points_by_category"`
	TotalPoints      int            `json:"total_points"`
}
