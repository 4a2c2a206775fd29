package types

// RankedPair holds two image filenames and their similarity score
type RankedPair struct {
	First  string  `json:"first"`
	Second string  `json:"second"`
	Score  float64 `json:"score"`
}

// EditScores holds the CLIP edit metrics for one before/after sample
type EditScores struct {
	ImageText0 float64 `json:"image_text_before"`
	ImageText1 float64 `json:"image_text_after"`
	Direction  float64 `json:"direction"`
	Image      float64 `json:"image"`
}
