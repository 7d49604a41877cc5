// Package openai implements the ai interfaces against OpenAI-compatible
// embedding APIs (OpenAI itself, Ollama, LocalAI, vLLM, and similar).
//
// Authentication uses a placeholder token by default, which local services
// accept. Point Config.EmbeddingHost at the service's /v1 endpoint.
package openai
