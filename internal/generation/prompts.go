// Package generation builds room restyling prompts and talks to the
// ControlNet diffusion service.
package generation

import "strings"

// PromptSections is the structured prompt the diffusion service consumes.
type PromptSections struct {
	General string `json:"general"`
	Room    string `json:"room"`
	Theme   string `json:"theme"`
	Full    string `json:"full"`
}

const generalPrompt = "Photorealistic interior render with practical layout, natural lighting, and cohesive decor. Maintain real-world proportions and believable materials."

var roomPrompts = map[string]string{
	"Living Room": "Focus on a comfortable living room arrangement with inviting seating, layered lighting, and balanced focal points.",
	"Dining Room": "Highlight a welcoming dining space with a functional table setup, complementary chairs, and ambient lighting.",
	"Bedroom":     "Present a relaxing bedroom retreat with a well-dressed bed, soft textures, and calming lighting accents.",
	"Bathroom":    "Showcase a spa-like bathroom with clean lines, premium fixtures, and organized storage.",
	"Office":      "Design a productive home office with ergonomic furniture, organized storage, and technology integration.",
	"Gaming Room": "Deliver an immersive gaming room featuring performance hardware, ambient RGB lighting, and comfortable seating zones.",
}

var themePrompts = map[string]string{
	"Modern":       "Apply contemporary styling with sleek lines, neutral foundations, and high-contrast accents.",
	"Vintage":      "Incorporate nostalgic elements, warm palettes, and characterful furnishings inspired by mid-century interiors.",
	"Minimalist":   "Simplify the space with clean silhouettes, negative space, and a restrained color palette.",
	"Professional": "Emphasize sophisticated finishes, tailored furniture choices, and a composed, executive mood.",
	"Tropical":     "Introduce breezy textures, botanical accents, and sunlit warmth reminiscent of coastal escapes.",
}

const (
	defaultRoom  = "Living Room"
	defaultTheme = "Modern"
)

// BuildPromptSections assembles the prompt for a room and theme. Unknown
// values fall back to the defaults instead of failing the request.
func BuildPromptSections(room, theme string) PromptSections {
	roomDetails, ok := roomPrompts[strings.TrimSpace(room)]
	if !ok {
		roomDetails = roomPrompts[defaultRoom]
	}
	themeDetails, ok := themePrompts[strings.TrimSpace(theme)]
	if !ok {
		themeDetails = themePrompts[defaultTheme]
	}

	return PromptSections{
		General: generalPrompt,
		Room:    roomDetails,
		Theme:   themeDetails,
		Full:    generalPrompt + " " + roomDetails + " " + themeDetails,
	}
}
