package card

import (
	"fmt"
	"image/color"

	"github.com/lox/clearyfi/internal/forecast"
)

// Palette is the colour scheme of a card.
type Palette struct {
	Background string
	Card       string
	CardBorder string
	Text       string
	TextMuted  string
	Accent     string
	AccentAlt  string // warnings, mud flag
}

var DefaultPalette = Palette{
	Background: "#0f0f1a",
	Card:       "#1a1a2e",
	CardBorder: "#2a2a4e",
	Text:       "#eeeeee",
	TextMuted:  "#666666",
	Accent:     "#4fc3f7",
	AccentAlt:  "#ff7043",
}

var palettes = map[forecast.WeatherCondition]Palette{
	forecast.ConditionClearWarm: {
		Background: "#f5f0e8", // warm cream
		Card:       "#ffffff",
		CardBorder: "#e0d8c8",
		Text:       "#2a2520",
		TextMuted:  "#706050",
		Accent:     "#d07020",
		AccentAlt:  "#c04010",
	},
	forecast.ConditionClearCool: {
		Background: "#e8f0f5",
		Card:       "#ffffff",
		CardBorder: "#c8d8e8",
		Text:       "#1a2530",
		TextMuted:  "#506070",
		Accent:     "#2080b0",
		AccentAlt:  "#c06030",
	},
	forecast.ConditionCloudy: {
		Background: "#dde0e4", // overcast
		Card:       "#f0f2f4",
		CardBorder: "#c0c8d0",
		Text:       "#252830",
		TextMuted:  "#606870",
		Accent:     "#4080a0",
		AccentAlt:  "#b05530",
	},
	forecast.ConditionLightRain: {
		Background: "#d8e0e8",
		Card:       "#e8f0f4",
		CardBorder: "#b8c8d4",
		Text:       "#1a2028",
		TextMuted:  "#506068",
		Accent:     "#3070a0",
		AccentAlt:  "#a05535",
	},
	forecast.ConditionHeavyRain: {
		Background: "#c8d0d8",
		Card:       "#dce4e8",
		CardBorder: "#a8b8c4",
		Text:       "#181c20",
		TextMuted:  "#485058",
		Accent:     "#306088",
		AccentAlt:  "#904830",
	},
	forecast.ConditionStorm: {
		Background: "#c0c4cc",
		Card:       "#d4d8e0",
		CardBorder: "#a0a8b4",
		Text:       "#181820",
		TextMuted:  "#484858",
		Accent:     "#6050a0",
		AccentAlt:  "#a04040",
	},
	forecast.ConditionFog: {
		Background: "#d8dce0",
		Card:       "#eaecf0",
		CardBorder: "#c0c4c8",
		Text:       "#202428",
		TextMuted:  "#606468",
		Accent:     "#607080",
		AccentAlt:  "#906858",
	},
	forecast.ConditionSnow: {
		Background: "#eef2f8",
		Card:       "#ffffff",
		CardBorder: "#d0dcea",
		Text:       "#102030",
		TextMuted:  "#5a7088",
		Accent:     "#3a78b0",
		AccentAlt:  "#b85a40",
	},
	forecast.ConditionHot: {
		Background: "#f8f0e0",
		Card:       "#ffffff",
		CardBorder: "#e8d8c0",
		Text:       "#302010",
		TextMuted:  "#806040",
		Accent:     "#d07010",
		AccentAlt:  "#d03000",
	},
	forecast.ConditionFrost: {
		Background: "#e4ecf4", // icy light blue
		Card:       "#f4f8fc",
		CardBorder: "#c4d4e4",
		Text:       "#102030",
		TextMuted:  "#406080",
		Accent:     "#2080b8",
		AccentAlt:  "#c06040",
	},
}

// PaletteFor returns the palette for a day condition.
func PaletteFor(c forecast.WeatherCondition) Palette {
	if p, ok := palettes[c]; ok {
		return p
	}
	return DefaultPalette
}

// rgba parses a "#rrggbb" colour. Malformed input yields opaque black.
func rgba(hex string) color.RGBA {
	c := color.RGBA{A: 255}
	if len(hex) != 7 || hex[0] != '#' {
		return c
	}
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.RGBA{A: 255}
	}
	return c
}
