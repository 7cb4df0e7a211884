package conversation

import "fmt"

const (
	replyAskPostalCode = "Sure! What's your 5-digit ZIP code? I'll find the closest pharmacies."
	replyRepromptZip   = "I didn't catch a ZIP code. Please reply with a 5-digit ZIP code (for example, 10001)."
	replyHealthDecline = "I'm sorry, I couldn't find reliable sources to answer that safely. " +
		"Please check with a pharmacist, your doctor, or another licensed healthcare professional."

	generalSystemPrompt = "You are a friendly, concise assistant for a pharmacy and health information service. " +
		"Answer general questions helpfully. Do not diagnose conditions or prescribe treatment; " +
		"suggest consulting a healthcare professional when appropriate."
)

func replyPostalNotFound(code string) string {
	return fmt.Sprintf("I couldn't find ZIP code %s. Please check it and try again.", code)
}
