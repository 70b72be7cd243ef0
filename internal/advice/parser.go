package advice

import (
	"regexp"
	"strings"

	"agroai-backend/internal/model"
)

// Per-field fallbacks, used independently when a single section failed to
// parse.
const (
	fallbackIrrigation     = "Follow standard irrigation practices for your crop and soil type."
	fallbackFertilization  = "Apply balanced fertilizers according to your crop's growth stage."
	fallbackPestControl    = "Implement integrated pest management practices."
	fallbackAdditionalTips = "Monitor soil moisture regularly and adjust irrigation based on weather conditions."
)

// Global fallbacks, used when no recognized heading appeared anywhere in the
// response.
const (
	globalFallbackFertilization  = "Please follow standard fertilization practices for your crop type."
	globalFallbackPestControl    = "Monitor your crops regularly for signs of pests or diseases."
	globalFallbackAdditionalTips = "Consult with local agricultural experts for region-specific advice."
)

const rawTruncateLen = 300

var (
	irrigationPrefix    = regexp.MustCompile(`(?i)^irrigation[^:]*:`)
	fertilizationPrefix = regexp.MustCompile(`(?i)^fertilization[^:]*:`)
	pestPrefix          = regexp.MustCompile(`(?i)^pest[^:]*:`)
	additionalPrefix    = regexp.MustCompile(`(?i)^additional[^:]*:`)
)

// ParseResponse buckets the model's free-text output into the four advice
// fields. The text is split on the template's "**" delimiter and each
// fragment is classified by case-insensitive keyword match. The model's
// output is untrusted; recovery is two-tiered:
//
//   - a field whose section is missing gets its own hardcoded fallback, so
//     one bad section never blocks the rest;
//   - if irrigation, fertilization and pest control all failed to parse, the
//     whole response is treated as unstructured and the raw text (truncated)
//     becomes the irrigation field.
func ParseResponse(response string) model.AdviceFields {
	var irrigation, fertilization, pestControl, additionalTips string

	for _, section := range strings.Split(response, "**") {
		trimmed := strings.TrimSpace(section)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		switch {
		case strings.Contains(lower, "irrigation"):
			irrigation = strings.TrimSpace(irrigationPrefix.ReplaceAllString(trimmed, ""))
		case strings.Contains(lower, "fertilization"):
			fertilization = strings.TrimSpace(fertilizationPrefix.ReplaceAllString(trimmed, ""))
		case strings.Contains(lower, "pest"):
			pestControl = strings.TrimSpace(pestPrefix.ReplaceAllString(trimmed, ""))
		case strings.Contains(lower, "additional"), strings.Contains(lower, "tips"):
			additionalTips = strings.TrimSpace(additionalPrefix.ReplaceAllString(trimmed, ""))
		}
	}

	if irrigation == "" && fertilization == "" && pestControl == "" {
		return model.AdviceFields{
			Irrigation:     truncate(response, rawTruncateLen) + "...",
			Fertilization:  globalFallbackFertilization,
			PestControl:    globalFallbackPestControl,
			AdditionalTips: globalFallbackAdditionalTips,
		}
	}

	return model.AdviceFields{
		Irrigation:     orFallback(irrigation, fallbackIrrigation),
		Fertilization:  orFallback(fertilization, fallbackFertilization),
		PestControl:    orFallback(pestControl, fallbackPestControl),
		AdditionalTips: orFallback(additionalTips, fallbackAdditionalTips),
	}
}

func orFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
