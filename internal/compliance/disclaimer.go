package compliance

import "strings"

// HealthDisclaimer closes every grounded health answer.
const HealthDisclaimer = "This information is educational only and is not medical advice. " +
	"Talk to a pharmacist or doctor about your situation."

// AppendDisclaimer adds HealthDisclaimer to message unless it is already
// present.
func AppendDisclaimer(message string) string {
	message = strings.TrimSpace(message)
	if strings.Contains(message, HealthDisclaimer) {
		return message
	}
	if message == "" {
		return HealthDisclaimer
	}
	return message + "\n\n" + HealthDisclaimer
}
