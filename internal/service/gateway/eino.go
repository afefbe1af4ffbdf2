package gateway

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// EinoGateway drives an eino chat model through a single-turn chain.
type EinoGateway struct {
	provider string
	chain    compose.Runnable[map[string]any, *schema.Message]
}

// NewEinoGateway compiles a prompt -> chat model chain around chatModel.
func NewEinoGateway(ctx context.Context, provider string, chatModel model.BaseChatModel) (*EinoGateway, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile gateway chain: %w", err)
	}

	return &EinoGateway{provider: provider, chain: runnable}, nil
}

// Generate runs the chain once and maps the reply to a Completion.
func (g *EinoGateway) Generate(ctx context.Context, req Request) (*Completion, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	msg, err := g.chain.Invoke(ctx, map[string]any{"prompt": req.Prompt}, g.options(req)...)
	if err != nil {
		return nil, upstreamError("%s: %v", g.provider, err)
	}

	return &Completion{Text: msg.Content, Meta: responseMeta(g.provider, msg)}, nil
}

// Stream returns the model's text chunks. The caller's context bounds the
// stream; Request.Timeout only applies to Generate.
func (g *EinoGateway) Stream(ctx context.Context, req Request) (*schema.StreamReader[string], error) {
	stream, err := g.chain.Stream(ctx, map[string]any{"prompt": req.Prompt}, g.options(req)...)
	if err != nil {
		return nil, upstreamError("%s: %v", g.provider, err)
	}

	return schema.StreamReaderWithConvert(stream, func(msg *schema.Message) (string, error) {
		return msg.Content, nil
	}), nil
}

func (g *EinoGateway) options(req Request) []compose.Option {
	opts := []model.Option{model.WithTemperature(float32(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	return []compose.Option{compose.WithChatModelOption(opts...)}
}

// Health reports the chat model as configured; there is no cheap remote probe.
func (g *EinoGateway) Health(context.Context) ComponentHealth {
	return ComponentHealth{OK: true, Provider: g.provider}
}

func responseMeta(provider string, msg *schema.Message) map[string]any {
	meta := map[string]any{"provider": provider}
	if msg.ResponseMeta == nil {
		return meta
	}
	if msg.ResponseMeta.FinishReason != "" {
		meta["finish_reason"] = msg.ResponseMeta.FinishReason
	}
	if usage := msg.ResponseMeta.Usage; usage != nil {
		meta["usage"] = map[string]any{
			"prompt_tokens":     usage.PromptTokens,
			"completion_tokens": usage.CompletionTokens,
			"total_tokens":      usage.TotalTokens,
		}
	}
	return meta
}
