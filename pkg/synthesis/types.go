package synthesis

import "time"

// CommunicationStyle is the tone and vocabulary guidance inside the DNA.
type CommunicationStyle struct {
	RecommendedTone string   `json:"recommended_tone"`
	KeywordsToUse   []string `json:"keywords_to_use"`
	KeywordsToAvoid []string `json:"keywords_to_avoid"`
}

// HolisticProfile is the Customer DNA: a compressed strategic reading of the
// raw psychometric profile.
type HolisticProfile struct {
	HolisticSummary    string             `json:"holistic_summary"`
	MainDrive          string             `json:"main_drive"`
	CommunicationStyle CommunicationStyle `json:"communication_style"`
	KeyLevers          []string           `json:"key_levers"`
	RedFlags           []string           `json:"red_flags"`
	MissingDataGaps    string             `json:"missing_data_gaps,omitempty"`
	Confidence         int                `json:"confidence"`
	SourceConfidence   int                `json:"source_confidence"`
	IsFallback         bool               `json:"is_fallback"`
	SynthesisTS        time.Time          `json:"synthesis_ts"`
}
