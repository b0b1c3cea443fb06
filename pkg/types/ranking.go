// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CategoryScore is one category's contribution to a track's final score.
type CategoryScore struct {
	// Category is the category label (streams, popularity, ...).
	Category string `json:"category" yaml:"category"`

	// RawScore is the normalized, availability-weighted category score in [0,100].
	RawScore float64 `json:"raw_score" yaml:"raw_score"`

	// Weight is the effective weight: availability x importance multiplier.
	Weight float64 `json:"weight" yaml:"weight"`

	// Availability is the mean data availability across the category's
	// metrics, in [0,1].
	Availability float64 `json:"availability" yaml:"availability"`
}

// PowerRanking is the composite ranking computed for a single track.
type PowerRanking struct {
	// Track is the ranked track's metadata.
	Track Track `json:"track" yaml:"track"`

	// FinalScore is the weighted-average composite score in [0,100].
	FinalScore float64 `json:"final_score" yaml:"final_score"`

	// Rank is the 1-based position after sorting by descending score.
	Rank int `json:"rank" yaml:"rank"`

	// CategoryScores breaks the final score down per category, in a
	// stable category order.
	CategoryScores []CategoryScore `json:"category_scores" yaml:"category_scores"`
}

// RankingResults is the ranking stage's output artifact.
type RankingResults struct {
	// Year is the selection year the ranking covers.
	Year int `json:"year" yaml:"year"`

	// Strategy names the normalization strategy used.
	Strategy string `json:"strategy" yaml:"strategy"`

	// Rankings lists tracks in rank order (rank 1 first).
	Rankings []PowerRanking `json:"rankings" yaml:"rankings"`
}
