// Package progression maps total XP to a player level.
//
// Level 1 costs 20 XP. Every next level costs floor(previous * m), where m
// starts at 1.50 and drops by 0.02 per level until it reaches 1.20.
package progression

import (
	"sort"
	"sync"
)

const (
	firstLevelCost = 20

	// multipliers in hundredths
	startMultiplier = 150
	multiplierStep  = 2
	minMultiplier   = 120
)

var (
	mu sync.Mutex
	// cumulative[i] is the total XP needed to reach level i+1
	cumulative = []int{firstLevelCost}
	costs      = []int{firstLevelCost}
)

func grow(untilXP int) {
	for cumulative[len(cumulative)-1] <= untilXP {
		n := len(costs)
		m := startMultiplier - multiplierStep*(n-1)
		if m < minMultiplier {
			m = minMultiplier
		}
		next := costs[n-1] * m / 100
		costs = append(costs, next)
		cumulative = append(cumulative, cumulative[n-1]+next)
	}
}

func growLevels(level int) {
	for len(costs) < level {
		grow(cumulative[len(cumulative)-1])
	}
}

// LevelForXP returns the largest level whose cumulative cost is <= xp.
func LevelForXP(xp int) int {
	if xp < firstLevelCost {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()
	grow(xp)
	// first index whose cumulative cost exceeds xp
	return sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > xp })
}

// LevelCost returns the XP cost of reaching level from level-1.
func LevelCost(level int) int {
	if level < 1 {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()
	growLevels(level)
	return costs[level-1]
}

// CumulativeXP returns the total XP needed to reach level.
func CumulativeXP(level int) int {
	if level < 1 {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()
	growLevels(level)
	return cumulative[level-1]
}

// Progress describes where xp sits inside its level.
type Progress struct {
	Level     int `json:"level"`
	TotalXP   int `json:"total_xp"`
	IntoLevel int `json:"into_level"`
	ToNext    int `json:"to_next"`
}

func ProgressFor(xp int) Progress {
	level := LevelForXP(xp)
	base := CumulativeXP(level)
	next := CumulativeXP(level + 1)
	return Progress{
		Level:     level,
		TotalXP:   xp,
		IntoLevel: xp - base,
		ToNext:    next - xp,
	}
}
