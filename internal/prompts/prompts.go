package prompts

import (
	"fmt"
	"strings"
)

// DefaultSourceDescription stands in when the source photo has no analysis yet.
const DefaultSourceDescription = "a photo"

const analysisPromptTemplate = "Analyze this image. What specific room is depicted (e.g., living room, kitchen, bedroom, bathroom, hallway, outdoor)? " +
	"If no specific room is clear, state 'unknown'. Then, provide a concise description of the image content and list 3-5 main categories or objects present, separated by commas. " +
	"Also, consider the R2 key path: %q for context."

const generationPromptTemplate = `Based on an image that can be described as "%s". Generate a new image incorporating the following: "%s". The new image should be cohesive and realistic.`

const generatedDescriptionTemplate = `Generated image based on prompt: "%s". (Original: %s)`

// Analysis builds the vision instruction for the blob stored at key.
func Analysis(key string) string {
	return fmt.Sprintf(analysisPromptTemplate, key)
}

// Generation composes the image-generation prompt from the source description and the
// user's inpainting request.
func Generation(sourceDescription, inpaintingPrompt string) string {
	if strings.TrimSpace(sourceDescription) == "" {
		sourceDescription = DefaultSourceDescription
	}
	return fmt.Sprintf(generationPromptTemplate, sourceDescription, inpaintingPrompt)
}

// GeneratedDescription is the analysis description written on a saved generated image.
func GeneratedDescription(prompt, originalKey string) string {
	if originalKey == "" {
		originalKey = "N/A"
	}
	return fmt.Sprintf(generatedDescriptionTemplate, prompt, originalKey)
}
