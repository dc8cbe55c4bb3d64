package engine

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/tvu/habitflow/internal/model"
)

// Neglected values accepted by LogActivity.
const (
	NeglectedNone = 0
	NeglectedMiss = 1
)

// Reward summarizes the effect of one logged occurrence, for transient
// user feedback.
type Reward struct {
	ActivityID string
	XPDelta    int
	GoldDelta  int
	LevelUp    bool
	StatDeltas map[string]float64
	Feedback   bool
}

// baseReward returns the (xp, gold) gains for an activity difficulty.
func baseReward(difficulty int) (int, int) {
	switch difficulty {
	case 1:
		return 2, 5
	case 2:
		return 5, 10
	case 3:
		return 10, 20
	case 4:
		return 17, 35
	case 5:
		return 25, 50
	}
	return 0, 0
}

// isEffectiveNegativeOccurrence decides the reward direction: a negative
// activity performed as intended, or a positive one missed, both count as
// negative occurrences. Completing a negative habit while it was marked
// neglected cancels out to a positive occurrence.
func isEffectiveNegativeOccurrence(activityType model.ActivityType, neglected int) bool {
	return (activityType == model.ActivityNegative) != (neglected == NeglectedMiss)
}

// NextLevelThreshold is the XP required to level up from the given level.
func NextLevelThreshold(level int) int {
	return int(math.Round(5*math.Pow(float64(level+1), 1.15)/5)) * 5
}

// addXP applies an XP gain (or loss) to a level/xp pair. A single call
// carries excess XP over at most one threshold; XP never goes negative.
func addXP(xp, level, gain int) (int, int) {
	threshold := NextLevelThreshold(level)
	if xp+gain >= threshold {
		return xp + gain - threshold, level + 1
	}
	newXP := xp + gain
	if newXP < 0 {
		newXP = 0
	}
	return newXP, level
}

// increaseStat moves a stat toward 100 with diminishing returns as it
// approaches the ceiling.
func increaseStat(current, scale float64) float64 {
	gain := 2.5 * (scale / 5) * math.Pow((model.StatMaxValue-current)/100, 1.005)
	return model.RoundStat(clampStat(current + gain))
}

// decreaseStat moves a stat toward 1 with diminishing losses as it
// approaches the floor.
func decreaseStat(current, scale float64) float64 {
	loss := 2.5 * (scale / 5) * math.Pow((current-model.StatMinValue)/100, 1.005)
	return model.RoundStat(clampStat(current - loss))
}

func clampStat(v float64) float64 {
	if v < model.StatMinValue {
		return model.StatMinValue
	}
	if v > model.StatMaxValue {
		return model.StatMaxValue
	}
	return v
}

// LogActivity converts one occurrence of an activity into XP/gold/stat
// deltas and persists them as a single atomic stats update. neglected is
// NeglectedMiss when a due habit went uncompleted; emitFeedback controls
// whether the returned Reward is meant to be surfaced to the user.
func (e *Engine) LogActivity(ctx context.Context, activityID string, neglected int, emitFeedback bool) (*Reward, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.logActivityLocked(ctx, activityID, neglected, emitFeedback)
}

func (e *Engine) logActivityLocked(ctx context.Context, activityID string, neglected int, emitFeedback bool) (*Reward, error) {
	activity, ok := e.activities[activityID]
	if !ok {
		return nil, fmt.Errorf("activity %s not found", activityID)
	}

	xpGain, goldGain := baseReward(activity.Difficulty)
	negative := isEffectiveNegativeOccurrence(activity.Type, neglected)
	if negative {
		xpGain = -xpGain
		goldGain = 0
	}

	reward := &Reward{
		ActivityID: activityID,
		StatDeltas: map[string]float64{},
		Feedback:   emitFeedback,
	}

	oldLevel := e.stats.Level
	oldGold := e.stats.Gold
	newXP, newLevel := addXP(e.stats.XP, e.stats.Level, xpGain)
	newGold := oldGold + goldGain
	if newGold < 0 {
		newGold = 0
	}

	// Every logged occurrence moves discipline alongside the activity's
	// own stats.
	targets := append([]string{}, activity.Stats...)
	hasDiscipline := false
	for _, name := range targets {
		if name == model.StatDiscipline {
			hasDiscipline = true
		}
	}
	if !hasDiscipline {
		targets = append(targets, model.StatDiscipline)
	}

	scale := float64(activity.Difficulty)
	statValues := map[string]*float64{}
	for _, name := range targets {
		current := e.stats.Stat(name)
		var next float64
		if negative {
			next = decreaseStat(current, scale)
		} else {
			next = increaseStat(current, scale)
		}
		v := next
		statValues[name] = &v
		reward.StatDeltas[name] = model.RoundStat(next - current)
	}

	now := e.now().Unix()
	patch := model.StatsPatch{
		LastUpdated: &now,
		XP:          &newXP,
		Level:       &newLevel,
		Gold:        &newGold,
		Stats:       statValues,
	}
	patch.Apply(&e.stats)

	reward.XPDelta = xpGain
	reward.GoldDelta = newGold - oldGold
	reward.LevelUp = newLevel > oldLevel

	// One atomic write per occurrence: keyring mirror plus remote partial
	// update. Remote failures are logged and repaired by the next full
	// stats push, never surfaced to the caller.
	if e.secure != nil {
		if err := e.secure.SetStats(e.userID, e.stats); err != nil {
			e.log.Warn("mirroring stats failed", zap.Error(err))
		}
	}
	if e.remote != nil {
		if err := e.remote.UpdateStats(ctx, e.userID, patch); err != nil {
			e.log.Warn("updating remote stats failed", zap.Error(err))
		}
	}

	return reward, nil
}
