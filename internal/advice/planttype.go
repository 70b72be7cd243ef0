package advice

import "strings"

// knownPlants is the fixed list of plant names recognized in classifier
// disease labels. Order matters: first substring match wins.
var knownPlants = []string{
	"Apple", "Tomato", "Potato", "Corn", "Grape", "Cherry", "Peach",
	"Pepper", "Strawberry", "Blueberry", "Orange", "Raspberry", "Soybean",
	"Squash",
}

// ExtractPlantType derives a coarse plant type from a disease label, e.g.
// "Tomato - Early blight" -> "Tomato". Returns "Unknown" when no known plant
// name occurs in the label.
func ExtractPlantType(diseaseName string) string {
	lower := strings.ToLower(diseaseName)
	for _, plant := range knownPlants {
		if strings.Contains(lower, strings.ToLower(plant)) {
			return plant
		}
	}
	return "Unknown"
}
