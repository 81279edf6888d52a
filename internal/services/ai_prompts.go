package services

import (
	"fmt"
	"strings"

	"artisan-marketplace/internal/models"
)

const (
	contentSystemPrompt = `You write product listings for an online marketplace of handmade Indian crafts.
Write warm, specific, honest copy. Never invent certifications, awards or materials that were not given.
Respond with JSON only: {"title": string, "description": string, "tags": [string], "story": string}.
The title is at most 80 characters, the description 80 to 200 words, and there are 5 to 10 lowercase tags.`

	pricingSystemPrompt = `You help Indian artisans price handmade goods for online sale.
Consider material cost, labour, craft category, regional market and typical marketplace margins.
Respond with JSON only: {"suggestedPrice": number, "minPrice": number, "maxPrice": number, "rationale": string}.
Prices are in %s, rounded to whole units. The rationale is at most 3 sentences.`

	marketingSystemPrompt = `You write social media and campaign copy for handmade Indian crafts.
Keep it authentic and culturally respectful. Avoid clickbait.
Respond with JSON only: {"caption": string, "hashtags": [string], "callToAction": string}.
Hashtags have no leading # and there are at most 12 of them.`

	imageDescribeInstruction = `Describe this handmade product photo for a marketplace listing.
Cover the item type, materials, colours, technique or craft tradition if recognisable, and notable details.
Answer in one paragraph of at most 120 words.`

	imageGenerateStyle = "Professional product photograph of a handmade Indian craft item, soft natural light, clean neutral background, high detail. "

	voiceTranscribeInstruction = `Transcribe this voice note from an artisan describing a product.
The speaker may use English, Hindi or another Indian language; transcribe in the spoken language and add an English translation after a blank line if it is not English.
Return only the transcript.`

	voiceListingSystemPrompt = `You turn an artisan's spoken description of a product into a marketplace listing.
Use only facts present in the transcript.
Respond with JSON only: {"title": string, "description": string, "tags": [string], "story": string}.`
)

func contentPrompt(req models.ContentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", req.ProductName)
	writeField(&b, "Category", req.Category)
	writeField(&b, "Materials", req.Materials)
	writeField(&b, "Region or craft tradition", req.Region)
	if len(req.Keywords) > 0 {
		writeField(&b, "Keywords", strings.Join(req.Keywords, ", "))
	}
	writeField(&b, "Artisan notes", req.Notes)
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = "English"
	}
	fmt.Fprintf(&b, "Write the listing in %s.", language)
	return b.String()
}

func pricingPrompt(req models.PricingRequest, hourlyRate, costFloor float64, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", req.ProductName)
	writeField(&b, "Category", req.Category)
	writeField(&b, "Region", req.Region)
	fmt.Fprintf(&b, "Material cost: %.2f %s\n", req.MaterialCost, currency)
	fmt.Fprintf(&b, "Hours of work: %.1f at %.2f %s per hour\n", req.HoursSpent, hourlyRate, currency)
	fmt.Fprintf(&b, "Cost floor (materials plus labour): %.2f %s\n", costFloor, currency)
	writeField(&b, "Notes", req.Notes)
	b.WriteString("Never suggest a minimum price below the cost floor.")
	return b.String()
}

func marketingPrompt(req models.MarketingRequest, platform, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", req.ProductName)
	writeField(&b, "Description", req.Description)
	fmt.Fprintf(&b, "Platform: %s\n", platform)
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	writeField(&b, "Audience", req.Audience)
	writeField(&b, "Occasion", req.Occasion)
	return b.String()
}

func voiceListingPrompt(transcript string) string {
	return "Transcript:\n" + transcript
}

func writeField(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

// stripCodeFence removes a ```json fence some models wrap around JSON
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
