package main

import (
	"context"
	"fmt"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const screeningModel = "gemini-2.5-pro"

func GetAgent(apiKey, agentName string) (agent.Agent, error) {
	ctx := context.Background()
	model, err := gemini.NewModel(ctx, screeningModel, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %v", err)
	}

	screeningAgent, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Model:       model,
		Description: "Screen an applicant's resume against a job posting",
		Instruction: prompt(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %v", err)
	}
	return screeningAgent, nil
}

// agentAnalyzer runs the screening agent in a fresh session per application.
type agentAnalyzer struct {
	appName  string
	runner   *runner.Runner
	sessions session.Service
}

func newAgentAnalyzer(apiKey, agentName string) (*agentAnalyzer, error) {
	screeningAgent, err := GetAgent(apiKey, agentName)
	if err != nil {
		return nil, err
	}
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        screeningAgent.Name(),
		Agent:          screeningAgent,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return &agentAnalyzer{appName: screeningAgent.Name(), runner: r, sessions: sessions}, nil
}

func (a *agentAnalyzer) Analyze(ctx context.Context, applicationID, input string) (string, error) {
	created, err := a.sessions.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    applicationID,
		SessionID: applicationID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create agent session: %w", err)
	}
	sess := created.Session
	defer a.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
		AppName:   sess.AppName(),
		UserID:    sess.UserID(),
		SessionID: sess.ID(),
	})

	// Agent streams fail transiently; retry the run on its own.
	return retry(2, func() (string, error) {
		stream := a.runner.Run(ctx, sess.UserID(), sess.ID(), &genai.Content{
			Role: "user",
			Parts: []*genai.Part{
				{Text: input},
			},
		}, agent.RunConfig{})

		var output string
		for event, err := range stream {
			if err != nil {
				return "", err
			}
			if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
				output = event.Content.Parts[0].Text
			}
		}
		if output == "" {
			return "", fmt.Errorf("empty agent response")
		}
		return output, nil
	})
}
