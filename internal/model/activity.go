package model

// ActivityType marks whether performing an activity is beneficial or harmful.
type ActivityType string

const (
	ActivityPositive ActivityType = "positive"
	ActivityNegative ActivityType = "negative"
)

// Stat names for the six improvable stats. Discipline moves on every logged
// occurrence; the others only when listed in an activity's Stats.
const (
	StatDiscipline = "discipline"
	StatPhysical   = "physical"
	StatMental     = "mental"
	StatSpiritual  = "spiritual"
	StatSocial     = "social"
	StatSkill      = "skill"
)

// ImprovableStats lists every stat an activity may target.
var ImprovableStats = []string{
	StatDiscipline,
	StatPhysical,
	StatMental,
	StatSpiritual,
	StatSocial,
	StatSkill,
}

// Difficulty bounds for activities.
const (
	DifficultyMin = 1
	DifficultyMax = 5
)

// Activity is an immutable template describing what a habit or todo does:
// its display info, which stats it improves (at most two), whether it is a
// positive or negative behavior, and how hard it is on a 1..5 scale.
type Activity struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Stats       []string     `json:"stats"`
	Type        ActivityType `json:"type"`
	Difficulty  int          `json:"difficulty"`
}

// DefaultActivities is the built-in catalog used when a user has no stored
// state on either side. Keys are activity IDs.
func DefaultActivities() map[string]Activity {
	catalog := []Activity{
		{
			ID:          "default-exercise",
			Name:        "Exercise",
			Description: "Work out for at least 30 minutes",
			Icon:        "dumbbell",
			Stats:       []string{StatPhysical},
			Type:        ActivityPositive,
			Difficulty:  3,
		},
		{
			ID:          "default-meditate",
			Name:        "Meditate",
			Description: "Sit quietly and breathe for 10 minutes",
			Icon:        "flower",
			Stats:       []string{StatSpiritual, StatMental},
			Type:        ActivityPositive,
			Difficulty:  2,
		},
		{
			ID:          "default-read",
			Name:        "Read",
			Description: "Read a book for 20 minutes",
			Icon:        "book-open",
			Stats:       []string{StatMental},
			Type:        ActivityPositive,
			Difficulty:  2,
		},
		{
			ID:          "default-socialize",
			Name:        "Reach out",
			Description: "Message or meet someone you care about",
			Icon:        "users",
			Stats:       []string{StatSocial},
			Type:        ActivityPositive,
			Difficulty:  1,
		},
		{
			ID:          "default-practice",
			Name:        "Practice a skill",
			Description: "Deliberate practice on a craft of your choice",
			Icon:        "target",
			Stats:       []string{StatSkill},
			Type:        ActivityPositive,
			Difficulty:  3,
		},
		{
			ID:          "default-junk-food",
			Name:        "Junk food",
			Description: "Fast food, sweets, or late-night snacking",
			Icon:        "pizza",
			Stats:       []string{StatPhysical},
			Type:        ActivityNegative,
			Difficulty:  2,
		},
		{
			ID:          "default-doomscroll",
			Name:        "Doomscrolling",
			Description: "Aimless feeds past bedtime",
			Icon:        "smartphone",
			Stats:       []string{StatMental},
			Type:        ActivityNegative,
			Difficulty:  1,
		},
	}

	m := make(map[string]Activity, len(catalog))
	for _, a := range catalog {
		m[a.ID] = a
	}
	return m
}
