// Package prompt renders the text prompts sent to the text and image models.
// Every function is pure.
package prompt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kiranshivaraju/scenegen/pkg/models"
)

const (
	DefaultRoomType       = "living room"
	DefaultOtherFurniture = "sofa and chairs"
)

// PlaceInRoom is the short directive used for default generation: infer the
// style from the attached photo and compose a matching room around it.
func PlaceInRoom(roomType, otherFurniture string) string {
	if roomType == "" {
		roomType = DefaultRoomType
	}
	if otherFurniture == "" {
		otherFurniture = DefaultOtherFurniture
	}
	return "Analyze the attached photo of a piece of furniture to determine " +
		"its style. Then, generate a high-resolution, photorealistic image " +
		"of a " + roomType + " scene that is aesthetically appropriate for that " +
		"furniture style, placing the furniture item within it. The " +
		"furniture should be clearly visible, so position other furnishings " +
		"(like the " + otherFurniture + ") to the sides or background to ensure " +
		"the main item is the focal point."
}

// RoomScene renders the detailed scene prompt for a classified product.
// The section layout (subject, room styling, photography quality, colour
// palette) is consumed as-is by the image model.
func RoomScene(c models.ClassificationResult, rc models.RoomContext) string {
	subject := c.FurnitureType
	if c.SubType != "" {
		subject += " / " + c.SubType
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a photorealistic, high-end interior design photograph featuring a %s %s %s in a %s. \n\n",
		c.ColorDesc, c.Material, subject, rc.RoomDesc)

	fmt.Fprintf(&b, "THE %s MUST BE:\n", strings.ToUpper(c.FurnitureType))
	b.WriteString("- The absolute focal point and hero of the image\n")
	fmt.Fprintf(&b, "- %s\n", rc.Placement)
	b.WriteString("- Fully visible from a flattering 3/4 front angle with no obstructions\n")
	b.WriteString("- Crystal clear, sharp focus showing all intricate details\n")
	b.WriteString("- Well-lit with professional lighting that highlights its craftsmanship\n")
	b.WriteString("- Taking up significant visual space in the composition (prominent but not cropped)\n\n")

	b.WriteString("ROOM STYLING:\n")
	fmt.Fprintf(&b, "- %s interior design aesthetic\n", capitalize(c.Style))
	fmt.Fprintf(&b, "- %s\n", rc.Supporting)
	b.WriteString("- Multiple light sources: natural window light, subtle accent lighting, warm ambient fixtures\n")
	b.WriteString("- Professional styling with attention to balance and negative space\n")
	fmt.Fprintf(&b, "- Clean, uncluttered composition that draws the eye directly to the %s\n\n", c.FurnitureType)

	b.WriteString("PHOTOGRAPHY QUALITY:\n")
	b.WriteString("- Professional interior design photography for luxury furniture catalogs\n")
	b.WriteString("- Architectural Digest or Elle Decor editorial quality\n")
	b.WriteString("- 8K ultra-high resolution with exceptional clarity\n")
	b.WriteString("- Perfect exposure, color accuracy, and white balance\n")
	b.WriteString("- Natural depth of field with slight background softness to emphasize the main piece\n")
	b.WriteString("- Shot with professional camera and wide-angle lens\n\n")

	fmt.Fprintf(&b, "COLOR PALETTE: Rich, harmonious colors that complement the %s tones of the %s, "+
		"creating an aspirational yet attainable space that makes the furniture piece irresistible.",
		c.ColorDesc, c.FurnitureType)

	return b.String()
}

// ProductContext renders the product block embedded in improvement prompts.
func ProductContext(p models.ProductRecord) string {
	var b strings.Builder
	b.WriteString("\nProduct Information:\n")
	fmt.Fprintf(&b, "- Model: %s\n", p.Model)
	fmt.Fprintf(&b, "- Retail Price: $%s\n", p.RetailString())
	b.WriteString("- Style/Category: Based on the product images and context\n")
	if p.WebsiteLinkForContext != "" {
		fmt.Fprintf(&b, "- Product Page: %s\n", p.WebsiteLinkForContext)
	}
	return b.String()
}

var improvementDirectives = []string{
	"Keep the core intent of placing the furniture in an appropriate room scene",
	"Add artistic details about lighting, color harmony, and atmosphere",
	"Describe the room style that would best showcase this product",
	"Include quality descriptors (photorealistic, high-resolution, professional)",
	"Focus on elements that would attract customers to buy this item",
	"Consider the price point when describing the room setting",
	"Emphasize the furniture as the focal point while creating an aspirational scene",
}

const onlyPrompt = "Provide ONLY the improved prompt, nothing else. Do not include any preamble or explanation."

// Improvement asks the text model to expand original into a richer editing prompt.
func Improvement(p models.ProductRecord, original string) string {
	var b strings.Builder
	b.WriteString("You are an expert at writing image editing prompts for furniture and home decor products.\n")
	b.WriteString("Improve the following prompt to be more detailed and specific for better image editing results.\n\n")
	b.WriteString(ProductContext(p))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Original prompt: %s\n\n", original)
	b.WriteString("Instructions:\n")
	writeNumbered(&b, improvementDirectives)
	b.WriteString("\n")
	b.WriteString(onlyPrompt)
	return b.String()
}

const imageRoles = "You are given two images. The FIRST image is the product silo photo: treat it only as a " +
	"non-destructive style reference for the furniture's true shape, color, material and details, and never modify it. " +
	"The SECOND image is the current lifestyle scene: it is the edit target."

// ImageAnalysis asks the image-capable model to compare the silo and lifestyle
// images and describe the edit needed to satisfy editRequest.
func ImageAnalysis(p models.ProductRecord, editRequest string) string {
	var b strings.Builder
	b.WriteString(imageRoles)
	b.WriteString("\n")
	b.WriteString(ProductContext(p))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Requested edit: %s\n\n", editRequest)
	b.WriteString("Instructions:\n")
	writeNumbered(&b, []string{
		"Compare the furniture in the second image against the reference in the first image",
		"Identify exactly what must change in the second image to satisfy the requested edit",
		"Do not propose any change that the requested edit does not ask for",
		"Keep the room layout, lighting and background unchanged unless the requested edit explicitly asks otherwise",
		"Write the result as a single, specific image editing instruction for the second image",
	})
	b.WriteString("\n")
	b.WriteString(onlyPrompt)
	return b.String()
}

// Refinement asks the text model to tighten a draft edit instruction so it
// covers only what editRequest asks for.
func Refinement(p models.ProductRecord, draft, editRequest string) string {
	var b strings.Builder
	b.WriteString("You are an expert at writing image editing prompts for furniture and home decor products.\n")
	b.WriteString("Refine the following draft instruction for editing an existing lifestyle image.\n\n")
	b.WriteString(ProductContext(p))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Requested edit: %s\n\n", editRequest)
	fmt.Fprintf(&b, "Draft instruction: %s\n\n", draft)
	b.WriteString("Instructions:\n")
	writeNumbered(&b, []string{
		"The first image is a non-destructive style reference and must not be changed",
		"The second image is the edit target",
		"Edit only what the requested edit specifies",
		"Leave room layout, lighting and background unchanged unless explicitly requested",
		"Keep the furniture faithful to the reference image in shape, color and material",
	})
	b.WriteString("\n")
	b.WriteString(onlyPrompt)
	return b.String()
}

// Reedit prefixes a refined instruction with the image-order contract sent
// alongside the reference and target images.
func Reedit(instruction string) string {
	return imageRoles + " Apply the following edit to the SECOND image only and return the edited image. " +
		"Leave everything not mentioned unchanged.\n\n" + instruction
}

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
