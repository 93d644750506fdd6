package service

import (
	"fmt"
	"strings"

	"github.com/maheshrc27/captionflow/internal/models"
)

const captionSystemPrompt = `You write social media captions for restaurants and food brands.
Write one caption of at most 60 words with 2 to 4 relevant hashtags and at most two emojis.
Reply with the caption text only.`

type captionStyle struct {
	Name        string
	Temperature float64
	Instruction string
}

var captionStyles = []captionStyle{
	{Name: "enthusiastic", Temperature: 0.8, Instruction: "Make it energetic and exciting, the kind of caption that makes people hungry right now."},
	{Name: "elegant", Temperature: 0.7, Instruction: "Make it refined and understated, focused on craft and quality."},
	{Name: "friendly", Temperature: 0.75, Instruction: "Make it warm and conversational, like a message to a regular customer."},
}

const defaultCaptionTemperature = 0.7

// BuildCaptionPrompt fills the caption template with brand and item details.
func BuildCaptionPrompt(rest *models.Restaurant, item *models.ContentItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Brand: %s\n", rest.Name)
	if rest.BrandType != "" {
		fmt.Fprintf(&b, "Brand type: %s\n", rest.BrandType)
	}
	if rest.Category != "" {
		fmt.Fprintf(&b, "Cuisine: %s\n", rest.Category)
	}
	if len(rest.Locations) > 0 {
		fmt.Fprintf(&b, "Locations: %s\n", strings.Join(rest.Locations, ", "))
	}
	if rest.Vision != "" {
		fmt.Fprintf(&b, "Brand vision: %s\n", rest.Vision)
	}

	if item.Kind == models.ContentKindProduct {
		fmt.Fprintf(&b, "\nProduct: %s\n", item.Name)
		if item.Price != nil {
			fmt.Fprintf(&b, "Price: %.2f\n", *item.Price)
		}
		if item.Description != nil && *item.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", *item.Description)
		}
		b.WriteString("\nWrite a caption promoting this product.")
	} else {
		category := "food and ambiance"
		if item.Category != nil && *item.Category != "" {
			category = *item.Category
		}
		fmt.Fprintf(&b, "\nPhoto content: %s\n", category)
		b.WriteString("\nWrite a caption for this photo.")
	}

	return b.String()
}

func styledPrompt(base string, style captionStyle) string {
	return base + "\nStyle: " + style.Name + ". " + style.Instruction
}
