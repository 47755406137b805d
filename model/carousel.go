package model

import "time"

// SlidePurpose is the narrative role of a slide.
type SlidePurpose string

const (
	PurposeHook     SlidePurpose = "hook"
	PurposeFeatures SlidePurpose = "features"
	PurposeSummary  SlidePurpose = "summary"
	PurposeCTA      SlidePurpose = "cta"
)

// SlideCount is the number of slides in a carousel.
const SlideCount = 4

// SlidePurposes lists purposes in slide order.
var SlidePurposes = [SlideCount]SlidePurpose{PurposeHook, PurposeFeatures, PurposeSummary, PurposeCTA}

// OverlayStyle is a creative-director directive for rendering overlay text.
type OverlayStyle struct {
	FontFamily string `json:"fontFamily,omitempty"`
	FontWeight string `json:"fontWeight,omitempty"`
	FontSize   string `json:"fontSize,omitempty"`
	Color      string `json:"color,omitempty"`
	Position   string `json:"position,omitempty"`
	Background string `json:"background,omitempty"`
	Effects    string `json:"effects,omitempty"`
}

// IsZero reports whether no directive field is set.
func (s OverlayStyle) IsZero() bool {
	return s == OverlayStyle{}
}

// SlideIntent is the creative plan for one slide.
type SlideIntent struct {
	Purpose      SlidePurpose  `json:"purpose" validate:"required,oneof=hook features summary cta"`
	Direction    string        `json:"direction" validate:"required"`
	KeyMessage   string        `json:"keyMessage" validate:"required"`
	OverlayStyle *OverlayStyle `json:"overlayStyle,omitempty"`
}

// CreativeBriefing is the structured creative plan consumed by every
// downstream agent.
type CreativeBriefing struct {
	Concept            string        `json:"concept" validate:"required"`
	Narrative          string        `json:"narrative" validate:"required"`
	VisualStyle        string        `json:"visualStyle" validate:"required"`
	ColorPalette       []string      `json:"colorPalette" validate:"required,min=1"`
	MoodKeywords       []string      `json:"moodKeywords"`
	Typography         string        `json:"typography,omitempty"`
	GlobalOverlayStyle *OverlayStyle `json:"globalOverlayStyle,omitempty"`
	Slides             []SlideIntent `json:"slides" validate:"len=4,dive"`
}

// TypographyConfig is the typography actually used to render a slide.
type TypographyConfig struct {
	FontFamily string `json:"fontFamily"`
	FontWeight string `json:"fontWeight"`
	FontSize   string `json:"fontSize"`
	Color      string `json:"color"`
	Position   string `json:"position"`
	Background string `json:"background,omitempty"`
	Effects    string `json:"effects,omitempty"`
	Source     string `json:"source"`
}

// ImageVersion is a rendered slide image for one aspect ratio.
type ImageVersion struct {
	URL         string    `json:"url"`
	AspectRatio string    `json:"aspectRatio"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GenerationMetadata records how a slide image was produced.
type GenerationMetadata struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// CarouselSlide is one slide of the carousel. Each pipeline step returns a
// new value rather than mutating the input.
type CarouselSlide struct {
	Index          int                     `json:"index"`
	Purpose        SlidePurpose            `json:"purpose"`
	Text           string                  `json:"text,omitempty"`
	ImageURL       string                  `json:"imageUrl,omitempty"`
	MasterImageURL string                  `json:"masterImageUrl,omitempty"`
	ImagePrompt    string                  `json:"imagePrompt,omitempty"`
	Typography     *TypographyConfig       `json:"typography,omitempty"`
	Versions       map[string]ImageVersion `json:"versions,omitempty"`
	Metadata       *GenerationMetadata     `json:"metadata,omitempty"`
}

// HasText reports whether the slide carries overlay text.
func (s CarouselSlide) HasText() bool {
	return s.Text != ""
}

// SourceImage returns the image overlays are rendered on: the master image,
// or the finalized image when no master exists.
func (s CarouselSlide) SourceImage() string {
	if s.MasterImageURL != "" {
		return s.MasterImageURL
	}
	return s.ImageURL
}

// Clone returns a copy that shares no mutable state with s.
func (s CarouselSlide) Clone() CarouselSlide {
	out := s
	if s.Typography != nil {
		t := *s.Typography
		out.Typography = &t
	}
	if s.Metadata != nil {
		m := *s.Metadata
		out.Metadata = &m
	}
	if s.Versions != nil {
		out.Versions = make(map[string]ImageVersion, len(s.Versions))
		for k, v := range s.Versions {
			out.Versions[k] = v
		}
	}
	return out
}

// AnalysisResult is the analysis agent's score of a briefing.
type AnalysisResult struct {
	Approved    bool     `json:"approved"`
	Score       int      `json:"score" validate:"min=0,max=100"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// Severity grades a compliance violation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Violation is one compliance finding.
type Violation struct {
	Type        string   `json:"type" validate:"required"`
	Severity    Severity `json:"severity" validate:"required,oneof=low medium high"`
	Description string   `json:"description"`
	SlideIndex  *int     `json:"slideIndex,omitempty"`
}

// ComplianceResult is the compliance agent's verdict on the slide copy.
type ComplianceResult struct {
	Approved    bool        `json:"approved"`
	Violations  []Violation `json:"violations" validate:"dive"`
	Suggestions []string    `json:"suggestions"`
	Skipped     bool        `json:"-"`
}
