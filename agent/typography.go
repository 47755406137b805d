package agent

import (
	"carousel/model"
)

// Typography sources, in priority order.
const (
	TypographyFromSlide    = "slide"
	TypographyFromGlobal   = "global"
	TypographyFromFallback = "fallback"
)

var fallbackTypography = map[model.SlidePurpose]model.TypographyConfig{
	model.PurposeHook: {
		FontFamily: "Montserrat",
		FontWeight: "800",
		FontSize:   "72px",
		Color:      "#FFFFFF",
		Position:   "center",
		Background: "dark gradient behind the text",
		Effects:    "soft drop shadow",
	},
	model.PurposeFeatures: {
		FontFamily: "Inter",
		FontWeight: "600",
		FontSize:   "48px",
		Color:      "#FFFFFF",
		Position:   "bottom",
		Background: "rounded dark panel at 60% opacity",
	},
	model.PurposeSummary: {
		FontFamily: "Inter",
		FontWeight: "600",
		FontSize:   "52px",
		Color:      "#FFFFFF",
		Position:   "center",
		Background: "subtle dark vignette",
	},
	model.PurposeCTA: {
		FontFamily: "Montserrat",
		FontWeight: "700",
		FontSize:   "60px",
		Color:      "#FFFFFF",
		Position:   "bottom",
		Background: "solid button-shaped banner in the brand accent color",
		Effects:    "slight outer glow",
	},
}

// FallbackTypography returns the default style for a slide purpose.
func FallbackTypography(p model.SlidePurpose) model.TypographyConfig {
	t, ok := fallbackTypography[p]
	if !ok {
		t = fallbackTypography[model.PurposeFeatures]
	}
	t.Source = TypographyFromFallback
	return t
}

// ResolveTypography picks the style for a slide: the briefing's per-slide
// directive, else its global overlay style, else the purpose fallback.
// Fields the chosen directive leaves empty are filled from the fallback.
func ResolveTypography(briefing *model.CreativeBriefing, slide model.CarouselSlide) model.TypographyConfig {
	fb := FallbackTypography(slide.Purpose)

	var (
		style  *model.OverlayStyle
		source string
	)
	if briefing != nil {
		if slide.Index >= 0 && slide.Index < len(briefing.Slides) {
			if s := briefing.Slides[slide.Index].OverlayStyle; s != nil && !s.IsZero() {
				style, source = s, TypographyFromSlide
			}
		}
		if style == nil && briefing.GlobalOverlayStyle != nil && !briefing.GlobalOverlayStyle.IsZero() {
			style, source = briefing.GlobalOverlayStyle, TypographyFromGlobal
		}
	}
	if style == nil {
		return fb
	}

	return model.TypographyConfig{
		FontFamily: firstNonEmpty(style.FontFamily, fb.FontFamily),
		FontWeight: firstNonEmpty(style.FontWeight, fb.FontWeight),
		FontSize:   firstNonEmpty(style.FontSize, fb.FontSize),
		Color:      firstNonEmpty(style.Color, fb.Color),
		Position:   firstNonEmpty(style.Position, fb.Position),
		Background: firstNonEmpty(style.Background, fb.Background),
		Effects:    firstNonEmpty(style.Effects, fb.Effects),
		Source:     source,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
