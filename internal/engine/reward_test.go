package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/tests/testutil"
)

func TestBaseRewardTable(t *testing.T) {
	cases := []struct {
		difficulty int
		xp, gold   int
	}{
		{1, 2, 5},
		{2, 5, 10},
		{3, 10, 20},
		{4, 17, 35},
		{5, 25, 50},
		{0, 0, 0},
		{6, 0, 0},
	}
	for _, c := range cases {
		xp, gold := baseReward(c.difficulty)
		assert.Equal(t, c.xp, xp, "difficulty %d", c.difficulty)
		assert.Equal(t, c.gold, gold, "difficulty %d", c.difficulty)
	}
}

func TestIsEffectiveNegativeOccurrence(t *testing.T) {
	assert.False(t, isEffectiveNegativeOccurrence(model.ActivityPositive, NeglectedNone))
	assert.True(t, isEffectiveNegativeOccurrence(model.ActivityPositive, NeglectedMiss))
	assert.True(t, isEffectiveNegativeOccurrence(model.ActivityNegative, NeglectedNone))
	assert.False(t, isEffectiveNegativeOccurrence(model.ActivityNegative, NeglectedMiss))
}

func TestNextLevelThreshold(t *testing.T) {
	assert.Equal(t, 10, NextLevelThreshold(1))
	assert.Equal(t, 20, NextLevelThreshold(2))
	assert.Equal(t, 25, NextLevelThreshold(3))
	assert.Equal(t, 30, NextLevelThreshold(4))
	assert.Equal(t, 70, NextLevelThreshold(9))

	// Thresholds never shrink as levels rise.
	prev := 0
	for level := 1; level <= 50; level++ {
		cur := NextLevelThreshold(level)
		assert.GreaterOrEqual(t, cur, prev, "level %d", level)
		prev = cur
	}
}

func TestAddXP(t *testing.T) {
	// Plain gain below the threshold.
	xp, level := addXP(3, 1, 4)
	assert.Equal(t, 7, xp)
	assert.Equal(t, 1, level)

	// Crossing the level-1 threshold of 10 carries the excess over.
	xp, level = addXP(8, 1, 5)
	assert.Equal(t, 3, xp)
	assert.Equal(t, 2, level)

	// Landing exactly on the threshold levels up with zero XP left.
	xp, level = addXP(8, 1, 2)
	assert.Equal(t, 0, xp)
	assert.Equal(t, 2, level)

	// Losses floor at zero and never demote.
	xp, level = addXP(1, 3, -25)
	assert.Equal(t, 0, xp)
	assert.Equal(t, 3, level)
}

func TestStatAdjustmentBounds(t *testing.T) {
	for scale := 1.0; scale <= 5.0; scale++ {
		up := increaseStat(99, scale)
		assert.LessOrEqual(t, up, model.StatMaxValue)
		assert.Greater(t, up, 99.0)

		down := decreaseStat(1.2, scale)
		assert.GreaterOrEqual(t, down, model.StatMinValue)
	}

	// At the floor there is nothing left to lose.
	assert.Equal(t, model.StatMinValue, decreaseStat(model.StatMinValue, 5))

	// Gains shrink as the stat climbs.
	lowGain := increaseStat(10, 3) - 10
	highGain := increaseStat(90, 3) - 90
	assert.Greater(t, lowGain, highGain)

	// Values always round to 3 decimals.
	v := increaseStat(42.1234567, 4)
	assert.Equal(t, math.Round(v*1000)/1000, v)
}

func TestLogActivityPositive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	// default-exercise: difficulty 3, targets physical.
	before := f.engine.Stats()
	reward, err := f.engine.LogActivity(ctx, "default-exercise", NeglectedNone, true)
	require.NoError(t, err)

	assert.Equal(t, 10, reward.XPDelta)
	assert.Equal(t, 20, reward.GoldDelta)
	assert.Contains(t, reward.StatDeltas, model.StatPhysical)
	assert.Contains(t, reward.StatDeltas, model.StatDiscipline)
	assert.Positive(t, reward.StatDeltas[model.StatPhysical])

	after := f.engine.Stats()
	assert.Equal(t, before.Gold+20, after.Gold)
	assert.Greater(t, after.Physical, before.Physical)
	assert.Greater(t, after.Discipline, before.Discipline)

	// The keyring mirror took the same write.
	mirrored, ok, err := f.secure.GetStats(testUID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, after, mirrored)
}

func TestLogActivityNegative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	// Earn some stats first so there is something to lose.
	_, err := f.engine.LogActivity(ctx, "default-exercise", NeglectedNone, false)
	require.NoError(t, err)
	before := f.engine.Stats()

	// default-junk-food: negative, difficulty 2, targets physical.
	reward, err := f.engine.LogActivity(ctx, "default-junk-food", NeglectedNone, true)
	require.NoError(t, err)

	assert.Equal(t, -5, reward.XPDelta)
	assert.Equal(t, 0, reward.GoldDelta)
	assert.Negative(t, reward.StatDeltas[model.StatPhysical])

	after := f.engine.Stats()
	assert.Equal(t, before.Gold, after.Gold)
	assert.Less(t, after.Physical, before.Physical)
	assert.Less(t, after.Discipline, before.Discipline)
}

func TestLogActivityNeglectedPositiveIsPenalty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	reward, err := f.engine.LogActivity(ctx, "default-read", NeglectedMiss, false)
	require.NoError(t, err)

	assert.Equal(t, -5, reward.XPDelta)
	assert.Equal(t, 0, reward.GoldDelta)
	assert.False(t, reward.Feedback)
}

func TestLogActivityResistedNegativeIsReward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	// A negative habit marked neglected means the user did NOT do it: the
	// two flags cancel into a positive occurrence.
	reward, err := f.engine.LogActivity(ctx, "default-junk-food", NeglectedMiss, false)
	require.NoError(t, err)

	assert.Equal(t, 5, reward.XPDelta)
	assert.Equal(t, 10, reward.GoldDelta)
	assert.Positive(t, reward.StatDeltas[model.StatPhysical])
}

func TestLogActivityUnknownActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	_, err := f.engine.LogActivity(ctx, "nope", NeglectedNone, false)
	assert.Error(t, err)
}

func TestLogActivityLevelUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewClock(5000))
	require.NoError(t, f.engine.Load(ctx))

	// Level 1 needs 10 XP; a single difficulty-3 completion delivers it.
	reward, err := f.engine.LogActivity(ctx, "default-exercise", NeglectedNone, false)
	require.NoError(t, err)

	assert.True(t, reward.LevelUp)
	stats := f.engine.Stats()
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, 0, stats.XP)
}
