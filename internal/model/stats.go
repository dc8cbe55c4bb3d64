package model

import "math"

// Stat bounds and precision for the six improvable stats.
const (
	StatMinValue = 1.0
	StatMaxValue = 100.0
)

// Stats is the gamification state for a user. The six improvable stats are
// bounded to [1, 100] at 3-decimal precision; gold and gems are integers
// clamped at zero below.
type Stats struct {
	UID         string  `json:"uid" db:"uid"`
	LastUpdated int64   `json:"lastUpdated" db:"last_updated"`
	XP          int     `json:"xp" db:"xp"`
	Level       int     `json:"level" db:"level"`
	Gold        int     `json:"gold" db:"gold"`
	Gems        int     `json:"gems" db:"gems"`
	Discipline  float64 `json:"discipline" db:"discipline"`
	Physical    float64 `json:"physical" db:"physical"`
	Mental      float64 `json:"mental" db:"mental"`
	Spiritual   float64 `json:"spiritual" db:"spiritual"`
	Social      float64 `json:"social" db:"social"`
	Skill       float64 `json:"skill" db:"skill"`
}

// DefaultStats returns the starting state for a fresh account: level 1 with
// no XP or currency, every improvable stat at its floor.
func DefaultStats(uid string) Stats {
	return Stats{
		UID:        uid,
		XP:         0,
		Level:      1,
		Gold:       0,
		Gems:       0,
		Discipline: StatMinValue,
		Physical:   StatMinValue,
		Mental:     StatMinValue,
		Spiritual:  StatMinValue,
		Social:     StatMinValue,
		Skill:      StatMinValue,
	}
}

// Stat returns the named improvable stat value.
func (s Stats) Stat(name string) float64 {
	switch name {
	case StatDiscipline:
		return s.Discipline
	case StatPhysical:
		return s.Physical
	case StatMental:
		return s.Mental
	case StatSpiritual:
		return s.Spiritual
	case StatSocial:
		return s.Social
	case StatSkill:
		return s.Skill
	}
	return 0
}

// SetStat assigns the named improvable stat value.
func (s *Stats) SetStat(name string, value float64) {
	switch name {
	case StatDiscipline:
		s.Discipline = value
	case StatPhysical:
		s.Physical = value
	case StatMental:
		s.Mental = value
	case StatSpiritual:
		s.Spiritual = value
	case StatSocial:
		s.Social = value
	case StatSkill:
		s.Skill = value
	}
}

// StatsPatch is a partial stats update. Nil fields are untouched, so the
// whole reward of one logged occurrence lands in a single atomic write.
type StatsPatch struct {
	LastUpdated *int64
	XP          *int
	Level       *int
	Gold        *int
	Gems        *int
	Stats       map[string]*float64
}

// Apply merges the patch into s.
func (p StatsPatch) Apply(s *Stats) {
	if p.LastUpdated != nil {
		s.LastUpdated = *p.LastUpdated
	}
	if p.XP != nil {
		s.XP = *p.XP
	}
	if p.Level != nil {
		s.Level = *p.Level
	}
	if p.Gold != nil {
		s.Gold = *p.Gold
	}
	if p.Gems != nil {
		s.Gems = *p.Gems
	}
	for name, v := range p.Stats {
		if v != nil {
			s.SetStat(name, *v)
		}
	}
}

// RoundStat rounds a stat value to the 3-decimal precision stats are
// stored at.
func RoundStat(v float64) float64 {
	return math.Round(v*1000) / 1000
}
