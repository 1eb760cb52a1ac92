package prompt

import (
	"strings"
	"testing"

	"github.com/kiranshivaraju/scenegen/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPlaceInRoom_Defaults(t *testing.T) {
	got := PlaceInRoom("", "")

	assert.Equal(t, "Analyze the attached photo of a piece of furniture to determine its style. "+
		"Then, generate a high-resolution, photorealistic image of a living room scene that is "+
		"aesthetically appropriate for that furniture style, placing the furniture item within it. "+
		"The furniture should be clearly visible, so position other furnishings (like the sofa and chairs) "+
		"to the sides or background to ensure the main item is the focal point.", got)
}

func TestPlaceInRoom_Custom(t *testing.T) {
	got := PlaceInRoom("dining room", "table and buffet")
	assert.Contains(t, got, "of a dining room scene")
	assert.Contains(t, got, "(like the table and buffet)")
}

func TestRoomScene_Sections(t *testing.T) {
	c := models.ClassificationResult{
		FurnitureType: "wine cabinet",
		SubType:       "wine bar",
		Style:         "elegant traditional",
		Material:      "cherry wood",
		ColorDesc:     "rich wood",
	}
	rc := models.RoomContext{
		RoomType:   "dining room",
		RoomDesc:   "sophisticated dining room",
		Placement:  "positioned along the wall as a statement piece",
		Supporting: "fine dining table with chairs",
	}

	got := RoomScene(c, rc)

	assert.True(t, strings.HasPrefix(got,
		"Create a photorealistic, high-end interior design photograph featuring a rich wood cherry wood "+
			"wine cabinet / wine bar in a sophisticated dining room. \n\nTHE WINE CABINET MUST BE:\n"))
	assert.Contains(t, got, "- positioned along the wall as a statement piece\n")
	assert.Contains(t, got, "\n\nROOM STYLING:\n- Elegant traditional interior design aesthetic\n- fine dining table with chairs\n")
	assert.Contains(t, got, "draws the eye directly to the wine cabinet\n\nPHOTOGRAPHY QUALITY:\n")
	assert.Contains(t, got, "- Shot with professional camera and wide-angle lens\n\nCOLOR PALETTE: ")
	assert.True(t, strings.HasSuffix(got,
		"complement the rich wood tones of the wine cabinet, creating an aspirational yet attainable "+
			"space that makes the furniture piece irresistible."))

	subjectIdx := strings.Index(got, "MUST BE:")
	stylingIdx := strings.Index(got, "ROOM STYLING:")
	qualityIdx := strings.Index(got, "PHOTOGRAPHY QUALITY:")
	paletteIdx := strings.Index(got, "COLOR PALETTE:")
	assert.True(t, subjectIdx < stylingIdx && stylingIdx < qualityIdx && qualityIdx < paletteIdx)
}

func TestRoomScene_NoSubType(t *testing.T) {
	c := models.ClassificationResult{FurnitureType: "chest", Style: "modern", Material: "wood", ColorDesc: "dark"}
	got := RoomScene(c, models.RoomContext{RoomDesc: "bright bedroom"})

	assert.Contains(t, got, "featuring a dark wood chest in a bright bedroom. ")
	assert.NotContains(t, got, " / ")
	assert.Contains(t, got, "- Modern interior design aesthetic")
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Elegant traditional", capitalize("elegant traditional"))
	assert.Equal(t, "Modern", capitalize("MODERN"))
	assert.Equal(t, "", capitalize(""))
}

func TestProductContext(t *testing.T) {
	p := models.ProductRecord{
		Model:                 "SOF-12345",
		Retail:                decimal.NewNullDecimal(decimal.RequireFromString("1299.99")),
		WebsiteLinkForContext: "https://example.com/products/sof-12345",
	}

	assert.Equal(t, "\nProduct Information:\n- Model: SOF-12345\n- Retail Price: $1299.99\n"+
		"- Style/Category: Based on the product images and context\n"+
		"- Product Page: https://example.com/products/sof-12345\n", ProductContext(p))
}

func TestProductContext_NoRetail(t *testing.T) {
	got := ProductContext(models.ProductRecord{Model: "CLK-1"})
	assert.Contains(t, got, "- Retail Price: $N/A\n")
	assert.NotContains(t, got, "Product Page")
}

func TestImprovement(t *testing.T) {
	p := models.ProductRecord{Model: "CLK-1"}
	got := Improvement(p, "place it in a study")

	assert.True(t, strings.HasPrefix(got, "You are an expert at writing image editing prompts for furniture and home decor products.\n"))
	assert.Contains(t, got, "\n\nOriginal prompt: place it in a study\n\nInstructions:\n1. Keep the core intent")
	assert.Contains(t, got, "6. Consider the price point when describing the room setting\n")
	assert.Contains(t, got, "7. Emphasize the furniture as the focal point while creating an aspirational scene\n\n")
	assert.True(t, strings.HasSuffix(got, "Provide ONLY the improved prompt, nothing else. Do not include any preamble or explanation."))
}

func TestRefinementTemplates_ImageRoles(t *testing.T) {
	p := models.ProductRecord{Model: "CUR-9"}

	analysis := ImageAnalysis(p, "make the cabinet doors glass")
	assert.Contains(t, analysis, "FIRST image")
	assert.Contains(t, analysis, "non-destructive style reference")
	assert.Contains(t, analysis, "SECOND image")
	assert.Contains(t, analysis, "Requested edit: make the cabinet doors glass")

	refined := Refinement(p, "replace the doors", "make the cabinet doors glass")
	assert.Contains(t, refined, "Draft instruction: replace the doors")
	assert.Contains(t, refined, "Edit only what the requested edit specifies")
	assert.Contains(t, refined, "Leave room layout, lighting and background unchanged unless explicitly requested")

	reedit := Reedit("swap the doors for glass")
	assert.Contains(t, reedit, "SECOND image only")
	assert.True(t, strings.HasSuffix(reedit, "\n\nswap the doors for glass"))
}
