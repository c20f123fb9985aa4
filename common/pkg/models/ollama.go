package models

import "strings"

const huggingFaceRegistry = "hf.co/"

// OllamaModelName returns the name Ollama knows a pretrained model by.
//
// A Hugging Face repository ID ("owner/name") is pulled by Ollama through the "hf.co/" registry.
// Names of the Ollama library ("llama3", "library/llama3:8b") and names that already
// carry a registry are returned as is.
func OllamaModelName(pretrained string) string {
	if strings.HasPrefix(pretrained, huggingFaceRegistry) {
		return pretrained
	}
	owner, name, ok := strings.Cut(pretrained, "/")
	if !ok || owner == "library" || strings.Contains(name, "/") {
		return pretrained
	}
	if strings.Contains(owner, ".") {
		// Already qualified by a registry host.
		return pretrained
	}
	return huggingFaceRegistry + pretrained
}
