package interpretation

// Document is the complete structured interpretation of one dream.
//
// JSON shape:
// {
//   "summary": "string",
//   "mood": "peaceful | happy | anxious | sad | confused | nostalgic | neutral | excited | fearful",
//   "symbols": [{"symbol": "string", "meaning": "string", "relevance": "high | medium | low"}],
//   "emotionalAnalysis": {
//     "primaryEmotion": "string",
//     "secondaryEmotions": ["string"],
//     "subconscious": "string",
//     "jungianPerspective": "string"
//   },
//   "lifeConnections": [{"area": "work | relationships | ...", "insight": "string", "actionSuggestion": "string"}],
//   "keyMessage": "string",
//   "reflectionQuestions": ["string"],
//   "tags": ["string"],
//   "confidence": "high | medium | low"
// }
type Document struct {
	Summary             string            `json:"summary" jsonschema:"required,description=Two or three sentence synopsis of the dream"`
	Mood                Mood              `json:"mood" jsonschema:"required,enum=peaceful,enum=happy,enum=anxious,enum=sad,enum=confused,enum=nostalgic,enum=neutral,enum=excited,enum=fearful"`
	Symbols             []Symbol          `json:"symbols" jsonschema:"required"`
	EmotionalAnalysis   EmotionalAnalysis `json:"emotionalAnalysis" jsonschema:"required"`
	LifeConnections     []LifeConnection  `json:"lifeConnections" jsonschema:"required"`
	KeyMessage          string            `json:"keyMessage" jsonschema:"required"`
	ReflectionQuestions []string          `json:"reflectionQuestions" jsonschema:"required"`
	Tags                []string          `json:"tags" jsonschema:"required"`
	Confidence          Confidence        `json:"confidence" jsonschema:"required,enum=high,enum=medium,enum=low"`
}

type Symbol struct {
	Symbol    string    `json:"symbol" jsonschema:"required"`
	Meaning   string    `json:"meaning" jsonschema:"required"`
	Relevance Relevance `json:"relevance" jsonschema:"required,enum=high,enum=medium,enum=low"`
}

type EmotionalAnalysis struct {
	PrimaryEmotion     string   `json:"primaryEmotion" jsonschema:"required"`
	SecondaryEmotions  []string `json:"secondaryEmotions" jsonschema:"required"`
	Subconscious       string   `json:"subconscious" jsonschema:"required"`
	JungianPerspective string   `json:"jungianPerspective" jsonschema:"required"`
}

type LifeConnection struct {
	Area             LifeArea `json:"area" jsonschema:"required,enum=work,enum=relationships,enum=personal_growth,enum=health,enum=creativity,enum=spirituality,enum=family,enum=finances"`
	Insight          string   `json:"insight" jsonschema:"required"`
	ActionSuggestion string   `json:"actionSuggestion" jsonschema:"required"`
}

type Mood string

const (
	MoodPeaceful  Mood = "peaceful"
	MoodHappy     Mood = "happy"
	MoodAnxious   Mood = "anxious"
	MoodSad       Mood = "sad"
	MoodConfused  Mood = "confused"
	MoodNostalgic Mood = "nostalgic"
	MoodNeutral   Mood = "neutral"
	MoodExcited   Mood = "excited"
	MoodFearful   Mood = "fearful"
)

// Moods lists every accepted mood in display order.
var Moods = []Mood{
	MoodPeaceful, MoodHappy, MoodAnxious, MoodSad, MoodConfused,
	MoodNostalgic, MoodNeutral, MoodExcited, MoodFearful,
}

type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type LifeArea string

const (
	AreaWork           LifeArea = "work"
	AreaRelationships  LifeArea = "relationships"
	AreaPersonalGrowth LifeArea = "personal_growth"
	AreaHealth         LifeArea = "health"
	AreaCreativity     LifeArea = "creativity"
	AreaSpirituality   LifeArea = "spirituality"
	AreaFamily         LifeArea = "family"
	AreaFinances       LifeArea = "finances"
)

// LifeAreas lists every accepted life area.
var LifeAreas = []LifeArea{
	AreaWork, AreaRelationships, AreaPersonalGrowth, AreaHealth,
	AreaCreativity, AreaSpirituality, AreaFamily, AreaFinances,
}

func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

func (r Relevance) Valid() bool {
	switch r {
	case RelevanceHigh, RelevanceMedium, RelevanceLow:
		return true
	default:
		return false
	}
}

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

func (a LifeArea) Valid() bool {
	for _, known := range LifeAreas {
		if a == known {
			return true
		}
	}
	return false
}
