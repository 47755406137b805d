package cost

// defaultPrices are list prices in USD. The empty prefix prices every model
// of a provider that has no more specific entry.
var defaultPrices = map[string]map[string]Pricing{
	"openai": {
		"gpt-4o":       {InputPerMillion: 2.50, OutputPerMillion: 10.00},
		"gpt-4o-mini":  {InputPerMillion: 0.15, OutputPerMillion: 0.60},
		"gpt-4.1":      {InputPerMillion: 2.00, OutputPerMillion: 8.00},
		"gpt-4.1-mini": {InputPerMillion: 0.40, OutputPerMillion: 1.60},
		"gpt-image-1":  {InputPerMillion: 5.00, OutputPerMillion: 40.00, PerImage: 0.042},
		"dall-e-3":     {PerImage: 0.040},
		"dall-e-2":     {PerImage: 0.020},
	},
	"anthropic": {
		"claude-sonnet-4":  {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"claude-opus-4":    {InputPerMillion: 15.00, OutputPerMillion: 75.00},
		"claude-haiku-4":   {InputPerMillion: 1.00, OutputPerMillion: 5.00},
		"claude-3-5-haiku": {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	},
	"google": {
		"gemini-2.5-pro":         {InputPerMillion: 1.25, OutputPerMillion: 10.00},
		"gemini-2.5-flash":       {InputPerMillion: 0.30, OutputPerMillion: 2.50},
		"gemini-2.5-flash-image": {InputPerMillion: 0.30, OutputPerMillion: 2.50, PerImage: 0.039},
		"gemini-2.0-flash":       {InputPerMillion: 0.10, OutputPerMillion: 0.40},
		"imagen":                 {PerImage: 0.040},
	},
	"groq": {
		"llama-3.3-70b": {InputPerMillion: 0.59, OutputPerMillion: 0.79},
		"llama-3.1-8b":  {InputPerMillion: 0.05, OutputPerMillion: 0.08},
	},
	"local": {
		"": {},
	},
}
