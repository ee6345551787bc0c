package models

// CalendarEvent is one round of a season calendar
type CalendarEvent struct {
	Round     int    `json:"round"`
	GrandPrix string `json:"grand_prix"`
}

// Calendar2025 is the 24-round 2025 season calendar
var Calendar2025 = []CalendarEvent{
	{1, "Australian Grand Prix"},
	{2, "Chinese Grand Prix"},
	{3, "Japanese Grand Prix"},
	{4, "Bahrain Grand Prix"},
	{5, "Saudi Arabian Grand Prix"},
	{6, "Miami Grand Prix"},
	{7, "Emilia Romagna Grand Prix"},
	{8, "Monaco Grand Prix"},
	{9, "Spanish Grand Prix"},
	{10, "Canadian Grand Prix"},
	{11, "Austrian Grand Prix"},
	{12, "British Grand Prix"},
	{13, "Belgian Grand Prix"},
	{14, "Hungarian Grand Prix"},
	{15, "Dutch Grand Prix"},
	{16, "Italian Grand Prix"},
	{17, "Azerbaijan Grand Prix"},
	{18, "Singapore Grand Prix"},
	{19, "United States Grand Prix"},
	{20, "Mexico City Grand Prix"},
	{21, "Sao Paulo Grand Prix"},
	{22, "Las Vegas Grand Prix"},
	{23, "Qatar Grand Prix"},
	{24, "Abu Dhabi Grand Prix"},
}

// SeasonCalendar returns the embedded calendar for a season, or nil when no
// calendar is embedded for that year. Callers fall back to ListEvents on the
// telemetry store for historical seasons.
func SeasonCalendar(year int) []CalendarEvent {
	if year == 2025 {
		return Calendar2025
	}
	return nil
}
