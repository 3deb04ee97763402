package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/workflow"
)

// decisionToolName is the single forced tool the adapter exposes to Claude,
// so the model's structured decision always arrives as a tool-call block
// rather than free text that must be parsed leniently.
const decisionToolName = "submit_decision"

// decisionToolSchema mirrors the Decision fields the agents expect back.
var decisionToolSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tool":              map[string]any{"type": "string"},
		"params":            map[string]any{"type": "object"},
		"task_status":       map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed", "failed"}},
		"message_to_client": map[string]any{"type": "string"},
		"reasoning":         map[string]any{"type": "string"},
	},
	"required": []string{"task_status", "reasoning"},
}

type (
	// MessagesClient captures the subset of the Anthropic SDK client used by
	// the adapter. It is satisfied by *sdk.MessageService so callers can pass
	// either a real client or a fake in tests, never touching the network in
	// deterministic fixtures.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	}

	// AnthropicOptions configures the Anthropic-backed adapter.
	AnthropicOptions struct {
		Model     string
		MaxTokens int64
		Timeout   time.Duration
		// RatePerSecond and Burst bound call rate across workflows sharing
		// this adapter instance.
		RatePerSecond rate.Limit
		Burst         int
		// ConsecutiveFailureTrip opens the breaker after this many
		// consecutive timeouts/parse failures.
		ConsecutiveFailureTrip uint32
		// BreakerCooldown is how long the breaker stays open before
		// allowing a probe request through.
		BreakerCooldown time.Duration
	}

	// AnthropicAdapter implements Adapter against Claude's Messages API,
	// guarded by a rate limiter, a circuit breaker, and an optional cache.
	AnthropicAdapter struct {
		msg     MessagesClient
		opts    AnthropicOptions
		limiter *rate.Limiter
		breaker *gobreaker.CircuitBreaker
		cache   Cache
		cacheTTL time.Duration
		bus     events.Bus
		clock   workflow.Clock
	}
)

// NewAnthropicAdapter constructs an adapter. cache may be a NewMemCache() or
// a NewRedisCache(...); bus may be nil if llm_call events aren't needed.
func NewAnthropicAdapter(msg MessagesClient, opts AnthropicOptions, cache Cache, cacheTTL time.Duration, bus events.Bus, clock workflow.Clock) (*AnthropicAdapter, error) {
	if msg == nil {
		return nil, errors.New("llm: anthropic messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("llm: model identifier is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	if opts.ConsecutiveFailureTrip == 0 {
		opts.ConsecutiveFailureTrip = 3
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	if clock == nil {
		clock = workflow.SystemClock{}
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm-adapter",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailureTrip
		},
	})
	return &AnthropicAdapter{
		msg:      msg,
		opts:     opts,
		limiter:  rate.NewLimiter(opts.RatePerSecond, opts.Burst),
		breaker:  breaker,
		cache:    cache,
		cacheTTL: cacheTTL,
		bus:      bus,
		clock:    clock,
	}, nil
}

// Infer implements Adapter.
func (a *AnthropicAdapter) Infer(ctx context.Context, role workflow.AgentID, prompt, stateDigest string) (Decision, bool, error) {
	key := promptHash(string(role), prompt, stateDigest)
	if a.cache != nil {
		if d, hit := a.cache.Get(ctx, key); hit {
			a.publishLLMCall(ctx, role, 0, true)
			return d, true, nil
		}
	}

	a.publishLLMCall(ctx, role, -1, false) // phase=begin marker (latency unknown yet)

	start := a.clock.Now()
	if err := a.limiter.Wait(ctx); err != nil {
		return FallbackDecision("rate limiter: " + err.Error()), false, nil
	}

	out, err := a.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
		return a.callOnce(callCtx, prompt, stateDigest)
	})

	latency := a.clock.Now().Sub(start).Milliseconds()
	a.publishLLMCallEnd(ctx, role, latency, false)

	if err != nil {
		return FallbackDecision("llm call failed: " + err.Error()), false, nil
	}

	decision := out.(Decision)
	if a.cache != nil {
		a.cache.Set(ctx, key, decision, a.cacheTTL)
	}
	return decision, false, nil
}

func (a *AnthropicAdapter) callOnce(ctx context.Context, prompt, stateDigest string) (Decision, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.opts.Model),
		MaxTokens: a.opts.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt + "\n\nCurrent state:\n" + stateDigest)),
		},
	}
	decisionTool := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: decisionToolSchema}, decisionToolName)
	if decisionTool.OfTool != nil {
		decisionTool.OfTool.Description = sdk.String("Submit the structured workflow decision for this turn.")
	}
	params.Tools = []sdk.ToolUnionParam{decisionTool}
	params.ToolChoice = sdk.ToolChoiceParamOfTool(decisionToolName)

	msg, err := a.msg.New(ctx, params)
	if err != nil {
		return Decision{}, err
	}
	var decision *Decision
	calls := 0
	for _, block := range msg.Content {
		if block.Type != "tool_use" || block.Name != decisionToolName {
			continue
		}
		calls++
		if decision != nil {
			continue // only the first tool_use block is ever acted on
		}
		var d Decision
		if err := json.Unmarshal(block.Input, &d); err != nil {
			return Decision{}, err
		}
		decision = &d
	}
	if decision == nil {
		return Decision{}, errors.New("anthropic: response contained no decision tool call")
	}
	decision.MultipleToolCalls = calls > 1
	return *decision, nil
}

func (a *AnthropicAdapter) publishLLMCall(ctx context.Context, role workflow.AgentID, _ int64, cached bool) {
	if a.bus == nil {
		return
	}
	_ = a.bus.Publish(ctx, events.New(events.TypeLLMCall, "", string(role), events.LLMCallPayload{
		Agent:  string(role),
		Phase:  "begin",
		Cached: cached,
	}, a.clock.Now()))
}

func (a *AnthropicAdapter) publishLLMCallEnd(ctx context.Context, role workflow.AgentID, latencyMs int64, cached bool) {
	if a.bus == nil {
		return
	}
	_ = a.bus.Publish(ctx, events.New(events.TypeLLMCall, "", string(role), events.LLMCallPayload{
		Agent:     string(role),
		Phase:     "end",
		LatencyMs: latencyMs,
		Cached:    cached,
	}, a.clock.Now()))
}
