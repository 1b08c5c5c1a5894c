package assist

import (
	"agrimitra/internal/core"
)

func unavailableMessage(lang core.Language) string {
	return lang.Pick(
		"The service is temporarily unavailable. Please try again in 1–2 minutes.",
		"सेवा अस्थायी रूप से उपलब्ध नहीं है। कृपया 1–2 मिनट बाद पुनः प्रयास करें।",
	)
}

func diagnosisApology(lang core.Language) string {
	return lang.Pick(
		"Sorry, I could not analyze the image.",
		"क्षमा करें, मैं छवि का विश्लेषण नहीं कर सका।",
	)
}

func diagnosisPrompt(lang core.Language) string {
	return "Analyze this crop image. If diseased, respond in STRICT JSON format with keys disease, cause, remedies (array). " +
		lang.Pick("Write the values in English.", "Write the values in Hindi. Keep keys in English.")
}

func translateValuesPrompt(payloadJSON string) string {
	return "Translate the VALUES of the following JSON to Hindi. Keep the JSON structure and keys (disease, cause, remedies) in English. Return ONLY JSON.\n\n" + payloadJSON
}

func translateTextPrompt(text string) string {
	return "Translate the following text into Hindi, preserving the original meaning. Return plain text only.\n\n" + text
}

func chatPrompt(message string, lang core.Language) string {
	return "You are an agriculture assistant for Indian farmers. Keep answers short and practical." +
		lang.RespondIn() + "\n\nUser: " + message
}

func translationPrompt(target core.Language, inputJSON string) string {
	return "Translate the following array of strings to " + target.Name() +
		`. Return STRICT JSON as {"translations": ["...", "...", ...]} with the same order and length as input.` +
		" If a string is empty, return an empty string in that position. Input JSON: " + inputJSON
}

func schemesPrompt(lang core.Language) string {
	return "List the latest Indian Government schemes relevant to farmers. Return STRICT JSON array named schemes" +
		" with objects having fields: title, desc, link, eligibility, how_to_apply. Keep descriptions short." +
		" Provide official links where possible." + lang.RespondIn() +
		` Example: {"schemes": [{"title": "...", "desc": "...", "link": "https://...", "eligibility": "...", "how_to_apply": "..."}]}`
}

func weatherSummaryPrompt(currentJSON string, lang core.Language) string {
	return "You are an agriculture assistant for Indian farmers. Based on the following current weather data," +
		" provide a brief farmer-friendly summary (2-4 short bullet points) including any actionable advice" +
		" for irrigation, spraying, or harvesting. Keep it concise and practical." + lang.RespondIn() +
		"\n\nData JSON: " + currentJSON
}
