package safety

import "strings"

// Disclaimer is appended to every modified response.
const Disclaimer = "This is general fitness guidance, not medical advice. Check with your doctor before changing your routine, and stop if anything hurts."

const (
	fallbackMedical       = "I can't give medical advice or diagnose conditions. Your doctor or physiotherapist is the best person to ask about that, and I'm happy to suggest gentle movement ideas in the meantime."
	fallbackUnsafe        = "That suggestion might not be safe for you. Let's stick to slow, controlled movements with support nearby, and stop if anything hurts or feels wrong."
	fallbackOverPromising = "Everyone's body responds differently, so I can't promise specific results. Regular, gentle movement often helps people feel stronger and steadier over time."
	fallbackInappropriate = "Sorry, that didn't come out right. Let's focus on what feels good for you today."
	fallbackIntensity     = "Let's keep the effort comfortable. You should be able to talk while you move, and we can build up slowly over the coming weeks."
	fallbackGeneric       = "I'd like to give you a careful answer on that. Could you ask it another way, or talk it through with your doctor or physiotherapist?"
)

var fallbackKeywords = []struct {
	keyword string
	message string
}{
	{"medical", fallbackMedical},
	{"unsafe", fallbackUnsafe},
	{"over-promising", fallbackOverPromising},
	{"inappropriate", fallbackInappropriate},
	{"intensity", fallbackIntensity},
}

// FallbackFor picks the canned message shown in place of blocked text, keyed on the block reason.
func FallbackFor(reason string) string {
	lower := strings.ToLower(reason)
	for _, fb := range fallbackKeywords {
		if strings.Contains(lower, fb.keyword) {
			return fb.message
		}
	}
	return fallbackGeneric
}

func withDisclaimer(text string) string {
	text = strings.TrimRight(text, " \n")
	if text == "" {
		return Disclaimer
	}
	return text + "\n\n" + Disclaimer
}
