package domain

// lotTypeLabels maps source lot type codes to display labels. Both agencies
// publish the same single-letter codes.
var lotTypeLabels = map[string]string{
	"C": "Car",
	"H": "Heavy Vehicle",
	"Y": "Motorcycle",
	"M": "Motorcycle",
}

// LotTypeLabel returns the display label for a lot type code. Unknown codes
// pass through unchanged so a new source code degrades visibly instead of
// dropping rows.
func LotTypeLabel(code string) string {
	if label, ok := lotTypeLabels[code]; ok {
		return label
	}
	return code
}
