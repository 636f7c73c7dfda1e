package providers

import (
	"os"
	"strings"
	"time"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqProvider serves Groq through its OpenAI-compatible API.
func NewGroqProvider(keyName string, timeout time.Duration) *OpenAIProvider {
	return newOpenAICompatible("groq", keyName, resolveGroqKey(keyName), envOr("RESUMEFLOW_GROQ_BASE_URL", groqBaseURL),
		envOr("RESUMEFLOW_GROQ_VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		envOr("RESUMEFLOW_GROQ_STRUCTURED_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		timeout)
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("RESUMEFLOW_GROQ_KEY_" + strings.ToUpper(sanitizeEnvToken(alias))); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}
