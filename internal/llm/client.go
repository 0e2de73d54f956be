// Package llm routes model calls across a small pool of provider
// credentials and classifies throttling responses into "retry shortly" vs.
// "exhausted".
package llm

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// Generator is the single-call surface the orchestrators depend on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Credential configures one Vertex AI client of the pool.
type Credential struct {
	Name            string // logging label, e.g. "primary"
	ProjectID       string
	Location        string
	CredentialsFile string // optional; ambient credentials when empty
	Model           string
}

// VertexGenerator implements Generator using Google's Vertex AI.
type VertexGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewVertexGenerator creates a Vertex AI client for one credential.
func NewVertexGenerator(ctx context.Context, cred Credential) (*VertexGenerator, error) {
	var opts []option.ClientOption
	if cred.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cred.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cred.ProjectID, cred.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client %s: %w", cred.Name, err)
	}

	model := client.GenerativeModel(cred.Model)
	model.SetTemperature(0.7)
	model.SetTopP(0.8)
	model.SetTopK(40)

	return &VertexGenerator{client: client, model: model, name: cred.Name}, nil
}

// Generate runs one prompt and returns the model's text.
func (v *VertexGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate (%s): %w", v.name, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generate (%s): no response generated", v.name)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("generate (%s): unexpected response type", v.name)
	}
	return string(text), nil
}

// Close closes the underlying Vertex AI client.
func (v *VertexGenerator) Close() error {
	return v.client.Close()
}
