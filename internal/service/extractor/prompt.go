package extractor

import "strings"

const primaryPromptTemplate = `Extract the following fields from the user message as a JSON object with keys pain, users, kpi, budget and confidence (0.0-1.0 per field). Return only valid JSON.

Message: "{message}"

Output example: {"pain": null, "users": null, "kpi": null, "budget": null, "confidence": {"pain":0.0,"users":0.0,"kpi":0.0,"budget":0.0}}`

const retryPromptTemplate = `You MUST output valid JSON only. Extract pain, users, kpi, budget and confidence. If unknown, use null. Message: "{message}"`

// attemptPrompts holds one template per attempt; its length bounds the loop.
var attemptPrompts = []string{primaryPromptTemplate, retryPromptTemplate}

// buildPrompt embeds the message verbatim.
func buildPrompt(template, message string) string {
	return strings.Replace(template, "{message}", message, 1)
}
