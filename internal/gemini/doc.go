// Package gemini adapts the Gemini API to the two remote capabilities the
// service needs: prompt-driven image generation (ImageClient, a
// media.PromptGenerator) and Veo video generation (VideoClient, a
// jobs.Provider).
//
// Both share one Client built on google.golang.org/genai. GOOGLE_API_DOMAIN
// may point the client at a mock server; a trailing API version such as
// /v1beta is split off into the genai HTTP options.
package gemini
