// Command workflow-demo wires the engine's components together the way a
// real deployment would — backends, registry, agents, validator, router,
// bus, executor — starts one workflow, and prints its terminal event. It
// mirrors the teacher's cmd/demo wiring style, adapted to this engine's own
// construction order.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexhelm/workflow-engine/agent"
	"github.com/nexhelm/workflow-engine/audit"
	"github.com/nexhelm/workflow-engine/backend"
	"github.com/nexhelm/workflow-engine/config"
	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/executor"
	"github.com/nexhelm/workflow-engine/llm"
	"github.com/nexhelm/workflow-engine/tools"
	"github.com/nexhelm/workflow-engine/validator"
	"github.com/nexhelm/workflow-engine/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "workflow-demo:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	clock := workflow.SystemClock{}
	bus := events.NewBus()

	fixturesPath := "fixtures/s1_happy_path.yaml"
	if len(os.Args) > 1 {
		fixturesPath = os.Args[1]
	}
	fixtures, err := backend.LoadFixtures(fixturesPath)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	notifications := backend.NewNotificationSink(bus)
	backends := backend.NewBackends(fixtures, notifications, clock.Now())

	registry, err := tools.NewRegistry(backends, bus, clock)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	llmAdapter, err := buildAdapter(cfg, bus, clock)
	if err != nil {
		return fmt.Errorf("build llm adapter: %w", err)
	}

	v, err := validator.NewDefault()
	if err != nil {
		return fmt.Errorf("build validator: %w", err)
	}

	exec := &executor.Executor{
		Orchestrator: &agent.Orchestrator{LLM: llmAdapter, Bus: bus, Clock: clock},
		Validator:    v,
		Agents: map[workflow.AgentID]agent.Agent{
			workflow.OperationsAgent: agent.NewOperations(llmAdapter, registry, bus, clock),
			workflow.AdvisorAgent:    agent.NewAdvisor(llmAdapter, registry, bus, clock),
		},
		Bus:      bus,
		Clock:    clock,
		MaxSteps: cfg.MaxSteps,
	}

	auditFile, err := os.Create("audit.csv")
	if err != nil {
		return fmt.Errorf("open audit sink: %w", err)
	}
	defer auditFile.Close()
	sink := audit.NewCSVAuditSink(auditFile)
	if _, err := bus.Register(sink); err != nil {
		return fmt.Errorf("register audit sink: %w", err)
	}

	stream, sub, err := events.Subscribe(bus, events.DefaultBufferSize)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	req := workflow.Request{
		RequestType: "open_roth_ira",
		ClientID:    firstClientID(fixtures),
		ClientName:  "Demo Client",
		Initiator:   "workflow-demo",
		CreatedAt:   clock.Now(),
	}

	go func() {
		for ev := range stream {
			fmt.Printf("[%s] workflow=%s agent=%s payload=%+v\n", ev.Type(), ev.WorkflowID(), ev.Agent(), ev.Payload())
		}
	}()

	result, err := exec.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println("final status:", result.Status)
	fmt.Println("outcome:", result.Outcome)
	return nil
}

func firstClientID(f *backend.Fixtures) string {
	if len(f.Clients) == 0 {
		return "unknown"
	}
	return f.Clients[0].ClientID
}

func buildAdapter(cfg config.Config, bus events.Bus, clock workflow.Clock) (llm.Adapter, error) {
	if cfg.AnthropicAPIKey == "" {
		return llm.FakeAdapter{}, nil
	}
	client := sdk.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	return llm.NewAnthropicAdapter(&client.Messages, llm.AnthropicOptions{
		Model:     cfg.AnthropicModel,
		MaxTokens: 1024,
		Timeout:   cfg.LLMTimeout,
	}, llm.NewMemCache(), 5*time.Minute, bus, clock)
}

