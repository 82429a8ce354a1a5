package llm

// ModelInfo describes one model exposed through the catalog endpoint.
type ModelInfo struct {
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ContextLength  int    `json:"context_length"`
	SupportsTools  bool   `json:"supportsTools"`
	SupportsVision bool   `json:"supportsVision"`
	Recommended    bool   `json:"recommended"`
}

// Catalog holds the models this deployment can serve, filtered down to the
// providers that actually have credentials configured.
type Catalog struct {
	models []ModelInfo
}

// NewCatalog keeps only models whose provider key appears in available.
func NewCatalog(available map[string]bool) *Catalog {
	var models []ModelInfo
	for _, m := range knownModels {
		if available[m.Provider] {
			models = append(models, m)
		}
	}
	return &Catalog{models: models}
}

// Filter narrows the catalog; empty provider and toolsOnly=false return everything.
func (c *Catalog) Filter(provider string, toolsOnly bool) []ModelInfo {
	var out []ModelInfo
	for _, m := range c.models {
		if provider != "" && m.Provider != provider {
			continue
		}
		if toolsOnly && !m.SupportsTools {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ContextLength returns the context window for the model, or the fallback
// when the model is not in the catalog.
func (c *Catalog) ContextLength(modelID string) int {
	for _, m := range c.models {
		if m.ID == modelID {
			return m.ContextLength
		}
	}
	return DefaultContextLength
}

// Recommended returns the recommended subset of the filtered models.
func (c *Catalog) Recommended() []ModelInfo {
	var out []ModelInfo
	for _, m := range c.models {
		if m.Recommended {
			out = append(out, m)
		}
	}
	return out
}

var knownModels = []ModelInfo{
	{
		ID:             "gpt-4-turbo",
		Provider:       "openai",
		Name:           "GPT-4 Turbo",
		Description:    "Most capable GPT-4 model with 128k context and vision",
		ContextLength:  128000,
		SupportsTools:  true,
		SupportsVision: true,
		Recommended:    true,
	},
	{
		ID:            "gpt-4",
		Provider:      "openai",
		Name:          "GPT-4",
		Description:   "High-intelligence flagship model for complex tasks",
		ContextLength: 8192,
		SupportsTools: true,
	},
	{
		ID:            "gpt-3.5-turbo",
		Provider:      "openai",
		Name:          "GPT-3.5 Turbo",
		Description:   "Fast and efficient model for everyday tasks",
		ContextLength: 16385,
		SupportsTools: true,
	},
	{
		ID:             "gemini-1.5-flash-latest",
		Provider:       "google",
		Name:           "Gemini 1.5 Flash",
		Description:    "Fast and versatile multimodal model with 1M context window",
		ContextLength:  1048576,
		SupportsTools:  true,
		SupportsVision: true,
		Recommended:    true,
	},
	{
		ID:             "gemini-1.5-pro-latest",
		Provider:       "google",
		Name:           "Gemini 1.5 Pro",
		Description:    "Most capable Gemini model with 2M token context window",
		ContextLength:  2097152,
		SupportsTools:  true,
		SupportsVision: true,
		Recommended:    true,
	},
	{
		ID:            "gemini-1.0-pro",
		Provider:      "google",
		Name:          "Gemini 1.0 Pro",
		Description:   "Previous generation Gemini model",
		ContextLength: 32768,
		SupportsTools: true,
		Recommended:   true,
	},
}
