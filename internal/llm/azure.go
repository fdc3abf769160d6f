package llm

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// AzureOpenAIProvider calls a chat deployment on Azure OpenAI.
type AzureOpenAIProvider struct {
	client     *azopenai.Client
	deployment string
}

// NewAzureOpenAIProvider creates the provider for endpoint and deployment.
func NewAzureOpenAIProvider(endpoint, apiKey, deployment string) (*AzureOpenAIProvider, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("%w: azure requires endpoint, api key and deployment", ErrNotConfigured)
	}

	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}
	return &AzureOpenAIProvider{client: client, deployment: deployment}, nil
}

func (p *AzureOpenAIProvider) Name() string {
	return "azure"
}

// Complete implements Provider.
func (p *AzureOpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages, err := azureMessages(req.Messages)
	if err != nil {
		return "", err
	}

	opts := azopenai.ChatCompletionsOptions{
		Messages:       messages,
		Temperature:    to.Ptr(float32(req.Temperature)),
		DeploymentName: to.Ptr(p.deployment),
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = to.Ptr(int32(req.MaxTokens))
	}

	resp, err := p.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return "", fmt.Errorf("Azure OpenAI completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("empty response from Azure OpenAI")
	}
	return *resp.Choices[0].Message.Content, nil
}

func azureMessages(messages []Message) ([]azopenai.ChatRequestMessageClassification, error) {
	out := make([]azopenai.ChatRequestMessageClassification, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			out[i] = &azopenai.ChatRequestSystemMessage{Content: azopenai.NewChatRequestSystemMessageContent(msg.Content)}
		case "user":
			out[i] = &azopenai.ChatRequestUserMessage{Content: azopenai.NewChatRequestUserMessageContent(msg.Content)}
		case "assistant":
			out[i] = &azopenai.ChatRequestAssistantMessage{Content: azopenai.NewChatRequestAssistantMessageContent(msg.Content)}
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return out, nil
}
