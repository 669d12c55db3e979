package prompts

// TitlesSchema validates the title stage's structured output.
const TitlesSchema = `{
	"type": "object",
	"properties": {
		"titles": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"subtitle": {"type": "string"},
					"rationale": {"type": "string"}
				},
				"required": ["title", "subtitle"]
			}
		}
	},
	"required": ["titles"]
}`

// StructureSchema validates the structure stage's chapter skeleton.
const StructureSchema = `{
	"type": "object",
	"properties": {
		"chapters": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"intro": {"type": "string", "minLength": 1}
				},
				"required": ["title", "intro"]
			}
		}
	},
	"required": ["chapters"]
}`

// MarketingSchema validates the marketing stage's bundle.
const MarketingSchema = `{
	"type": "object",
	"properties": {
		"synopsis": {"type": "string", "minLength": 1},
		"back_cover": {"type": "string", "minLength": 1},
		"flap_copy": {"type": "string"},
		"keywords": {
			"type": "array",
			"items": {"type": "string"}
		},
		"promo": {"type": "string"}
	},
	"required": ["synopsis", "back_cover"]
}`
