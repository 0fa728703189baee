package model

// Rank is a gamification tier derived from a point total.
type Rank string

// Ranks, lowest first.
const (
	RankSeed     Rank = "Seed"
	RankHelper   Rank = "Helper"
	RankGiver    Rank = "Giver"
	RankHero     Rank = "Hero"
	RankChampion Rank = "Champion"
	RankGuardian Rank = "Guardian"
)

// RankTier maps the lowest point total of a tier to its rank.
type RankTier struct {
	MinPoints int  `json:"min_points"`
	Rank      Rank `json:"rank"`
}

// RankTiers is ordered by ascending MinPoints.
var RankTiers = []RankTier{
	{0, RankSeed},
	{5, RankHelper},
	{15, RankGiver},
	{30, RankHero},
	{60, RankChampion},
	{100, RankGuardian},
}

// Point deltas awarded when an item is given.
const (
	PointsRegularItem  = 1
	PointsCampaignItem = 5
)

// RankFor returns the rank for a point total. Negative totals map to the
// lowest tier.
func RankFor(points int) Rank {
	rank := RankTiers[0].Rank
	for _, tier := range RankTiers {
		if points < tier.MinPoints {
			break
		}
		rank = tier.Rank
	}
	return rank
}

// PointsFor returns the point delta for giving an item.
func PointsFor(campaign bool) int {
	if campaign {
		return PointsCampaignItem
	}
	return PointsRegularItem
}
