package margin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const defaultMargin = 96 * time.Second

func TestStepFirstAndSecondReduction(t *testing.T) {
	c := Arm(t0)

	c, target, applied := Step(c, defaultMargin, 70, t0.Add(defaultMargin))
	assert.Equal(t, 52, target)
	assert.True(t, c.Started)
	assert.Equal(t, 1, c.Reductions)
	require.Len(t, applied, 1)
	assert.True(t, applied[0].First)
	assert.Equal(t, t0.Add(defaultMargin), c.Anchor)

	c, target, applied = Step(c, defaultMargin, target, t0.Add(defaultMargin+16*time.Second))
	assert.Equal(t, 26, target)
	assert.Equal(t, 2, c.Reductions)
	require.Len(t, applied, 1)
	assert.Equal(t, Reduction{At: t0.Add(112 * time.Second), From: 52, To: 26, Count: 2}, applied[0])
}

func TestStepBeforeMarginIsNoop(t *testing.T) {
	c := Arm(t0)
	next, target, applied := Step(c, defaultMargin, 70, t0.Add(defaultMargin-time.Millisecond))
	assert.Equal(t, c, next)
	assert.Equal(t, 70, target)
	assert.Empty(t, applied)
}

func TestStepArmsUnarmedClock(t *testing.T) {
	var c Clock
	assert.False(t, c.Armed())

	c, target, applied := Step(c, defaultMargin, 70, t0)
	assert.True(t, c.Armed())
	assert.Equal(t, t0, c.Anchor)
	assert.Equal(t, 70, target)
	assert.Empty(t, applied)
}

func TestStepCatchUp(t *testing.T) {
	now := t0.Add(defaultMargin + 3*Interval + 5*time.Second)

	caught, caughtTarget, applied := Step(Arm(t0), defaultMargin, 70, now)
	assert.Len(t, applied, 4)
	assert.Equal(t, 4, caught.Reductions)
	assert.Equal(t, 70*3/4/2/2/2, caughtTarget)

	c := Arm(t0)
	target := 70
	for tick := t0; !tick.After(now); tick = tick.Add(17 * time.Millisecond) {
		c, target, _ = Step(c, defaultMargin, target, tick)
	}
	c, target, _ = Step(c, defaultMargin, target, now)
	assert.Equal(t, caught, c)
	assert.Equal(t, caughtTarget, target)
}

func TestStepStopsAtOne(t *testing.T) {
	c, target, _ := Step(Arm(t0), defaultMargin, 70, t0.Add(time.Hour))
	assert.Equal(t, 1, target)
	assert.True(t, c.Frozen(target))
	assert.LessOrEqual(t, c.Reductions, MaxReductions)

	again, againTarget, applied := Step(c, defaultMargin, target, t0.Add(2*time.Hour))
	assert.Equal(t, c, again)
	assert.Equal(t, 1, againTarget)
	assert.Empty(t, applied)
}

func TestStepCapsReductions(t *testing.T) {
	c, target, applied := Step(Arm(t0), 0, 1<<30, t0.Add(time.Hour))
	assert.Equal(t, MaxReductions, c.Reductions)
	assert.Len(t, applied, MaxReductions)
	assert.Greater(t, target, 1)
	assert.True(t, c.Frozen(target))
}

func TestStepFirstReductionKeepsTargetPositive(t *testing.T) {
	c, target, applied := Step(Arm(t0), defaultMargin, 1, t0.Add(defaultMargin))
	assert.Equal(t, 1, target)
	assert.True(t, c.Started)
	require.Len(t, applied, 1)
	assert.Equal(t, 1, applied[0].To)
}

func TestStepZeroMargin(t *testing.T) {
	c, target, applied := Step(Arm(t0), 0, 70, t0)
	assert.Equal(t, 52, target)
	assert.True(t, c.Started)
	assert.Len(t, applied, 1)
}

func TestSchedule(t *testing.T) {
	got := Schedule(t0, defaultMargin, 70)
	targets := make([]int, len(got))
	for i, r := range got {
		targets[i] = r.To
	}
	assert.Equal(t, []int{52, 26, 13, 6, 3, 1}, targets)
	assert.Equal(t, t0.Add(defaultMargin), got[0].At)
	assert.Equal(t, t0.Add(defaultMargin+5*Interval), got[5].At)
}

func TestScheduleFromZeroTime(t *testing.T) {
	var start time.Time
	got := Schedule(start, defaultMargin, 70)
	require.Len(t, got, 6)
	assert.Equal(t, 52, got[0].To)
	assert.Equal(t, start.Add(defaultMargin), got[0].At)
	assert.Equal(t, Schedule(t0, defaultMargin, 70)[5].To, got[5].To)
}
