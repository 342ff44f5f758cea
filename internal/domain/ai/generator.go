package ai

import "context"

// Generator produces text content from a prompt. Used by the broadcast
// service for AI-assisted scheduling; everything else in the core is
// independent of the model behind it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
