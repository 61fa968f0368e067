package config

import "os"

// Secrets are API credentials taken from the environment only.
type Secrets struct {
	LLMAPIKey       string
	EmbeddingAPIKey string
	SerperAPIKey    string
}

// LoadSecrets reads credentials from the environment. LLM_API_KEY wins over
// HUGGINGFACEHUB_API_TOKEN, which wins over OPENAI_API_KEY.
func LoadSecrets() Secrets {
	return Secrets{
		LLMAPIKey:       firstEnv("LLM_API_KEY", "HUGGINGFACEHUB_API_TOKEN", "OPENAI_API_KEY"),
		EmbeddingAPIKey: firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY"),
		SerperAPIKey:    os.Getenv("SERPER_API_KEY"),
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
