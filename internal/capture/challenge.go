package capture

// Challenge is one step of the pose sequence.
type Challenge struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	Glyph       string `json:"glyph"`
	Description string `json:"description"`
	// Gesture is the category name a real recognizer reports for this pose.
	Gesture string `json:"gesture,omitempty"`
}

// DefaultChallenges returns the three hand poses shown in the apply form.
func DefaultChallenges() []Challenge {
	return []Challenge{
		{Index: 0, Label: "Pose 1", Glyph: "👆", Description: "Index finger up", Gesture: "Pointing_Up"},
		{Index: 1, Label: "Pose 2", Glyph: "✌️", Description: "Peace sign", Gesture: "Victory"},
		{Index: 2, Label: "Pose 3", Glyph: "🤟", Description: "Rock sign", Gesture: "ILoveYou"},
	}
}

// normalizeChallenges copies list and renumbers it so that Index always
// matches the position in the sequence.
func normalizeChallenges(list []Challenge) []Challenge {
	out := make([]Challenge, len(list))
	for i, c := range list {
		c.Index = i
		out[i] = c
	}
	return out
}
