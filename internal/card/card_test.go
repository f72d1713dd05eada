package card

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/clearyfi/internal/forecast"
)

func TestRender(t *testing.T) {
	days := []forecast.Day{
		{Date: "2026-03-01", TempAvg: 12, TempMin: 10, TempMax: 14, Humidity: 65, RainProbability: 1, Conditions: []string{"Rain"}},
		{Date: "2026-03-02", TempAvg: 18, TempMin: 16, TempMax: 20, Humidity: 60, DryWindow: true, Confidence: 1, Conditions: []string{"Clear"}},
		{Date: "2026-03-03", TempAvg: 10, TempMin: 8, TempMax: 12, Humidity: 80, Mud: true, Conditions: []string{"Rain"}},
		{Date: "2026-03-04", TempAvg: 9, TempMin: 8, TempMax: 12, Humidity: 80},
	}
	data, err := Render("Москва", days)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())

	bg := rgba(PaletteFor(forecast.ConditionLightRain).Background)
	assert.Equal(t, bg, color.RGBAModel.Convert(img.At(1, 1)))
}

func TestRenderNoDays(t *testing.T) {
	_, err := Render("Moscow", nil)
	assert.ErrorIs(t, err, ErrNoDays)
}

func TestTransliterate(t *testing.T) {
	assert.Equal(t, "Moskva", Transliterate("Москва"))
	assert.Equal(t, "Nizhniy Novgorod", Transliterate("Нижний Новгород"))
	assert.Equal(t, "Kazan", Transliterate("Kazan"))
	assert.Equal(t, "Shchelkovo", Transliterate("Щелково"))
	assert.Equal(t, "S?o Paulo", Transliterate("São Paulo"))
}

func TestPaletteFor(t *testing.T) {
	assert.Equal(t, DefaultPalette, PaletteFor("unknown"))
	for c := range palettes {
		p := PaletteFor(c)
		assert.NotEqual(t, color.RGBA{A: 255}, rgba(p.Background), string(c))
	}
}

func TestRGBA(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0xf5, G: 0xf0, B: 0xe8, A: 255}, rgba("#f5f0e8"))
	assert.Equal(t, color.RGBA{A: 255}, rgba("nope"))
}
