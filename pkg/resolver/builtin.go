package resolver

// Built-in mapping tables. Config mappings are merged on top, so an
// operator can override individual aliases without re-listing these.

// BuiltinMapping returns the default alias table covering the model
// names agent frameworks commonly request.
func BuiltinMapping() map[string]Target {
	return map[string]Target{
		// AI Studio models.
		"gemini-2.0-flash":     {Provider: "gemini", UpstreamModel: "gemini-2.0-flash"},
		"gemini-2.0-flash-exp": {Provider: "gemini", UpstreamModel: "gemini-2.0-flash-exp"},
		"gemini-1.5-flash":     {Provider: "gemini", UpstreamModel: "gemini-1.5-flash"},
		"gemini-1.5-flash-8b":  {Provider: "gemini", UpstreamModel: "gemini-1.5-flash-8b"},
		"gemini-1.5-pro":       {Provider: "gemini", UpstreamModel: "gemini-1.5-pro"},
		"gemini-pro":           {Provider: "gemini", UpstreamModel: "gemini-pro"},

		// Vertex AI models.
		"gemini-2.0-flash-001":    {Provider: "vertex", UpstreamModel: "gemini-2.0-flash-001"},
		"gemini-2.0-flash-vertex": {Provider: "vertex", UpstreamModel: "gemini-2.0-flash-001"},
		"gemini-1.5-flash-vertex": {Provider: "vertex", UpstreamModel: "gemini-1.5-flash"},
		"gemini-1.5-pro-vertex":   {Provider: "vertex", UpstreamModel: "gemini-1.5-pro"},
		"gemini-pro-vertex":       {Provider: "vertex", UpstreamModel: "gemini-pro"},

		// OpenAI models.
		"gpt-4o":        {Provider: "openai", UpstreamModel: "gpt-4o"},
		"gpt-4o-mini":   {Provider: "openai", UpstreamModel: "gpt-4o-mini"},
		"gpt-4-turbo":   {Provider: "openai", UpstreamModel: "gpt-4-turbo"},
		"gpt-4":         {Provider: "openai", UpstreamModel: "gpt-4"},
		"gpt-3.5-turbo": {Provider: "openai", UpstreamModel: "gpt-3.5-turbo"},
		"o1":            {Provider: "openai", UpstreamModel: "o1"},
		"o1-mini":       {Provider: "openai", UpstreamModel: "o1-mini"},
	}
}

// BuiltinFamilies returns the family rules tried after an exact match
// fails. Gemini-family aliases route to whichever Google provider is
// the configured default, so a bare "gemini-2.5-pro" works on both
// AI Studio and Vertex deployments.
func BuiltinFamilies(defaultProvider string) []FamilyRule {
	googleProvider := "gemini"
	if defaultProvider == "vertex" {
		googleProvider = "vertex"
	}

	return []FamilyRule{
		{Match: "gemini", Provider: googleProvider},
		{Match: "gpt", Provider: "openai"},
		{Match: "o1", Provider: "openai"},
	}
}

// DefaultModelFor returns the per-provider default upstream model.
func DefaultModelFor(provider string) string {
	switch provider {
	case "vertex":
		return "gemini-2.0-flash-001"
	case "openai":
		return "gpt-4o"
	default:
		return "gemini-2.0-flash"
	}
}
