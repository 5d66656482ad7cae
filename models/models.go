package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImpactVector holds the AI-estimated environmental impact of a day's logged
// actions. All values are cumulative savings for that day, in the units the
// analysis service reports (kg for co2/waste/food, litres for water, kWh for energy).
type ImpactVector struct {
	CO2    float64 `bson:"co2" json:"co2"`
	Water  float64 `bson:"water" json:"water"`
	Energy float64 `bson:"energy" json:"energy"`
	Waste  float64 `bson:"waste" json:"waste"`
	Food   float64 `bson:"food" json:"food"`
}

// Add returns the element-wise sum of two impact vectors.
func (v ImpactVector) Add(o ImpactVector) ImpactVector {
	return ImpactVector{
		CO2:    v.CO2 + o.CO2,
		Water:  v.Water + o.Water,
		Energy: v.Energy + o.Energy,
		Waste:  v.Waste + o.Waste,
		Food:   v.Food + o.Food,
	}
}

// Sub returns the element-wise difference v - o.
func (v ImpactVector) Sub(o ImpactVector) ImpactVector {
	return ImpactVector{
		CO2:    v.CO2 - o.CO2,
		Water:  v.Water - o.Water,
		Energy: v.Energy - o.Energy,
		Waste:  v.Waste - o.Waste,
		Food:   v.Food - o.Food,
	}
}

// DailyEntry is a user's journal entry for one calendar day. At most one
// entry exists per (user_id, date); a same-day save revises the existing
// document in place rather than creating a second one.
type DailyEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Date      string             `bson:"date" json:"date"` // ISO format, 2006-01-02
	Text      string             `bson:"text" json:"text"`
	Impact    ImpactVector       `bson:"impact" json:"impact"`
	Points    int                `bson:"points" json:"points"`
	Comment   string             `bson:"comment" json:"comment"`
	Actions   []string           `bson:"actions,omitempty" json:"actions,omitempty"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// QuizStats tracks a user's quiz activity. CurrentStreak counts consecutive
// fully-correct rounds and resets on the first miss.
type QuizStats struct {
	Total         int `bson:"total" json:"total"`
	Correct       int `bson:"correct" json:"correct"`
	CurrentStreak int `bson:"current_streak" json:"current_streak"`
	BestStreak    int `bson:"best_streak" json:"best_streak"`
}

// UserAggregate is the per-user point ledger. TotalPoints is the exact sum of
// every delta ever applied (entry upserts, challenge completions, quiz scores,
// achievement bonuses); WeeklyPoints is the same sum restricted to the current
// week window, keyed by LastWeeklyReset.
type UserAggregate struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	DisplayName     string               `bson:"display_name" json:"display_name"`
	Email           string               `bson:"email" json:"email"`
	TotalPoints     int                  `bson:"total_points" json:"total_points"`
	WeeklyPoints    int                  `bson:"weekly_points" json:"weekly_points"`
	LastWeeklyReset string               `bson:"last_weekly_reset" json:"last_weekly_reset"` // ISO date of the week's Monday
	Badges          []string             `bson:"badges" json:"badges"`
	EarnedIDs       []string             `bson:"earned_achievement_ids" json:"earned_achievement_ids"`
	Friends         []primitive.ObjectID `bson:"friends" json:"friends"`
	Private         bool                 `bson:"private" json:"private"`
	NotifyFriends   bool                 `bson:"notify_friends" json:"notify_friends"`
	ImpactTotals    ImpactVector         `bson:"impact_totals" json:"impact_totals"`
	EntryCount      int                  `bson:"entry_count" json:"entry_count"`
	ChallengesDone  int                  `bson:"challenges_done" json:"challenges_done"`
	Quiz            QuizStats            `bson:"quiz" json:"quiz"`
}

// HasEarned reports whether the achievement id is already in the earned set.
func (u *UserAggregate) HasEarned(id string) bool {
	for _, earned := range u.EarnedIDs {
		if earned == id {
			return true
		}
	}
	return false
}

// Achievement is one row of the static achievement catalog: reference data,
// never user data. Bonus points are credited once, when the rule first fires.
type Achievement struct {
	ID          string `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description" json:"description"`
	Icon        string `bson:"icon" json:"icon"`
	Bonus       int    `bson:"bonus" json:"bonus"`
}

// Challenge is a fixed-point community challenge a user can complete once.
type Challenge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Points      int                `bson:"points" json:"points"`
	Active      bool               `bson:"active" json:"active"`
}

// ChallengeCompletion records that a user completed a challenge. Its
// existence is what makes CompleteChallenge a one-shot operation.
type ChallengeCompletion struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChallengeID primitive.ObjectID `bson:"challenge_id" json:"challenge_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	CompletedAt time.Time          `bson:"completed_at" json:"completed_at"`
}

// NotificationMessage is the payload published onto the notification queue,
// one per (friend, achievement) pair. ID is a uuid used by consumers to
// deduplicate broker redeliveries.
type NotificationMessage struct {
	ID              string `json:"id"`
	To              string `json:"to"`
	FriendName      string `json:"friend_name"`
	AchieverName    string `json:"achiever_name"`
	AchievementName string `json:"achievement_name"`
}

// LeaderboardRow is one line of the weekly leaderboard.
type LeaderboardRow struct {
	UserID       primitive.ObjectID `json:"user_id"`
	DisplayName  string             `json:"display_name"`
	WeeklyPoints int                `json:"weekly_points"`
	TotalPoints  int                `json:"total_points"`
	Rank         int                `json:"rank"`
}
