package engine

import "github.com/skmehra/ecotrace/models"

// Rule is one row of the achievement catalog: static achievement data plus
// the threshold predicate evaluated against a metrics snapshot. Rules are
// independent of each other; order in the catalog is evaluation order.
type Rule struct {
	models.Achievement
	Satisfied func(m Metrics) bool
}

// Catalog is the immutable set of achievement rules. It is injected into the
// engine at construction, never mutated at runtime.
type Catalog []Rule

// DefaultCatalog returns the production achievement catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Achievement: models.Achievement{ID: "first_entry", Name: "First Steps", Description: "Log your first eco-action", Icon: "seedling", Bonus: 10},
			Satisfied:   func(m Metrics) bool { return m.EntryCount >= 1 },
		},
		{
			Achievement: models.Achievement{ID: "ten_entries", Name: "Habit Forming", Description: "Log eco-actions on 10 days", Icon: "sprout", Bonus: 25},
			Satisfied:   func(m Metrics) bool { return m.EntryCount >= 10 },
		},
		{
			Achievement: models.Achievement{ID: "thirty_entries", Name: "Dedicated", Description: "Log eco-actions on 30 days", Icon: "tree", Bonus: 75},
			Satisfied:   func(m Metrics) bool { return m.EntryCount >= 30 },
		},
		{
			Achievement: models.Achievement{ID: "points_100", Name: "Century", Description: "Reach 100 total points", Icon: "medal", Bonus: 25},
			Satisfied:   func(m Metrics) bool { return m.TotalPoints >= 100 },
		},
		{
			Achievement: models.Achievement{ID: "points_500", Name: "Eco Warrior", Description: "Reach 500 total points", Icon: "shield", Bonus: 50},
			Satisfied:   func(m Metrics) bool { return m.TotalPoints >= 500 },
		},
		{
			Achievement: models.Achievement{ID: "points_1000", Name: "Planet Champion", Description: "Reach 1000 total points", Icon: "trophy", Bonus: 100},
			Satisfied:   func(m Metrics) bool { return m.TotalPoints >= 1000 },
		},
		{
			Achievement: models.Achievement{ID: "streak_3", Name: "Warming Up", Description: "Keep a 3-day streak", Icon: "flame", Bonus: 15},
			Satisfied:   func(m Metrics) bool { return m.Streak >= 3 },
		},
		{
			Achievement: models.Achievement{ID: "streak_7", Name: "Full Week", Description: "Keep a 7-day streak", Icon: "calendar", Bonus: 30},
			Satisfied:   func(m Metrics) bool { return m.Streak >= 7 },
		},
		{
			Achievement: models.Achievement{ID: "streak_30", Name: "Unstoppable", Description: "Keep a 30-day streak", Icon: "rocket", Bonus: 150},
			Satisfied:   func(m Metrics) bool { return m.Streak >= 30 },
		},
		{
			Achievement: models.Achievement{ID: "co2_50", Name: "Carbon Cutter", Description: "Save 50 kg of CO2", Icon: "cloud", Bonus: 40},
			Satisfied:   func(m Metrics) bool { return m.Impact.CO2 >= 50 },
		},
		{
			Achievement: models.Achievement{ID: "water_1000", Name: "Water Saver", Description: "Save 1000 litres of water", Icon: "droplet", Bonus: 40},
			Satisfied:   func(m Metrics) bool { return m.Impact.Water >= 1000 },
		},
		{
			Achievement: models.Achievement{ID: "waste_25", Name: "Waste Not", Description: "Divert 25 kg of waste", Icon: "recycle", Bonus: 40},
			Satisfied:   func(m Metrics) bool { return m.Impact.Waste >= 25 },
		},
		{
			Achievement: models.Achievement{ID: "challenge_1", Name: "Challenger", Description: "Complete your first challenge", Icon: "flag", Bonus: 20},
			Satisfied:   func(m Metrics) bool { return m.ChallengesDone >= 1 },
		},
		{
			Achievement: models.Achievement{ID: "challenge_5", Name: "Challenge Master", Description: "Complete 5 challenges", Icon: "crown", Bonus: 60},
			Satisfied:   func(m Metrics) bool { return m.ChallengesDone >= 5 },
		},
		{
			Achievement: models.Achievement{ID: "quiz_10", Name: "Quiz Whiz", Description: "Play 10 eco quizzes", Icon: "bulb", Bonus: 25},
			Satisfied:   func(m Metrics) bool { return m.Quiz.Total >= 10 },
		},
		{
			// The quiz streak is the long-standing proxy for a perfect
			// score; keep it rather than a literal per-round check.
			Achievement: models.Achievement{ID: "quiz_perfect", Name: "Perfect Score", Description: "Ace 5 quizzes in a row", Icon: "star", Bonus: 50},
			Satisfied:   func(m Metrics) bool { return m.Quiz.CurrentStreak >= 5 },
		},
	}
}
