package advice

import (
	"fmt"
	"strconv"
	"strings"

	"agroai-backend/internal/model"
)

// Placeholders substituted for absent optional fields so the model always
// receives a complete prompt shape.
const (
	notSpecified = "Not specified"
	notAvailable = "Not available"
)

// PromptInput is the full field set shared between the request validator and
// the renderer; optional fields are present-or-default, never omitted.
type PromptInput struct {
	Location       string
	CropType       string
	SoilType       string
	PlantingDate   string
	LastIrrigation string
	Weather        *model.WeatherSnapshot
}

const promptTemplate = `You are an expert agricultural irrigation advisor with extensive knowledge of crop water requirements, soil types, and weather patterns.

Based on the following information, provide specific, actionable irrigation recommendations:

FARM DETAILS:
- Location: %s
- Crop Type: %s
- Soil Type: %s
- Planting Date: %s
- Last Irrigation: %s

CURRENT WEATHER CONDITIONS:
- Temperature: %s°C
- Humidity: %s%%
- Wind Speed: %s km/h
- Recent Precipitation: %smm
- Weather Condition: %s

TASK: Provide comprehensive irrigation advice in the following format:

**Irrigation Recommendation:**
[Provide specific irrigation timing, frequency, and amount recommendations based on the crop, soil, and weather conditions]

**Fertilization Advice:**
[Recommend fertilization timing and types that complement the irrigation schedule]

**Pest & Disease Control:**
[Advise on pest and disease management considering the moisture conditions and crop type]

**Additional Tips:**
[Include any other relevant agricultural advice for optimal crop health]

Keep recommendations practical, specific, and suitable for the given crop and conditions. Consider water efficiency and sustainable farming practices.`

// RenderPrompt fills the advice template. Pure templating: no validation and
// no retry logic lives here.
func RenderPrompt(in PromptInput) string {
	return fmt.Sprintf(promptTemplate,
		in.Location,
		in.CropType,
		in.SoilType,
		orPlaceholder(in.PlantingDate, notSpecified),
		orPlaceholder(in.LastIrrigation, notSpecified),
		weatherNumber(in.Weather, func(w *model.WeatherSnapshot) *float64 { return w.Temp }),
		weatherNumber(in.Weather, func(w *model.WeatherSnapshot) *float64 { return w.Humidity }),
		weatherNumber(in.Weather, func(w *model.WeatherSnapshot) *float64 { return w.Wind }),
		weatherNumber(in.Weather, func(w *model.WeatherSnapshot) *float64 { return w.Precip }),
		weatherCondition(in.Weather),
	)
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

func weatherNumber(w *model.WeatherSnapshot, pick func(*model.WeatherSnapshot) *float64) string {
	if w == nil {
		return notAvailable
	}
	v := pick(w)
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func weatherCondition(w *model.WeatherSnapshot) string {
	if w == nil || strings.TrimSpace(w.Condition) == "" {
		return notAvailable
	}
	return w.Condition
}
