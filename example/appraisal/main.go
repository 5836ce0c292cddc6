package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/tbxark/appraisalagent/agent"
	"github.com/tbxark/appraisalagent/app"
	"github.com/tbxark/appraisalagent/config"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/types"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	roleFlag := flag.String("role", "employee", "employee, hr or lead")
	session := flag.String("session", "", "session id (random when empty)")
	flag.Parse()

	role, ok := types.ParseRole(*roleFlag)
	if !ok {
		log.Fatalf("unsupported role %q", *roleFlag)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startApp(context.Background(), cfg, role, *session); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, cfg *config.Config, role types.Role, sessionID string) error {
	lg, err := logger.New(logger.Options{Mode: cfg.Log.Mode, Level: "warn", File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer lg.Sync()

	a, err := app.New(ctx, cfg, nil, lg)
	if err != nil {
		return err
	}
	defer a.Close()

	appraisalAgent := agent.NewAgent(
		"AppraisalAssistant",
		"An agent that collects self-appraisal entries and answers appraisal questions",
		a.Flow,
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: appraisalAgent})

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Appraisal assistant (%s). Tell me about a project you worked on:\n", role)
	for {
		fmt.Print("You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("Input closed. Bye.")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		chatCtx := agent.WithSession(ctx, sessionID, role)
		iter := runner.Run(chatCtx, []adk.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			fmt.Printf("\nAssistant: %v\n======\n", msg.Content)
			if resp, ok := event.Output.CustomizedOutput.(*agent.Response); ok && resp.Session.Phase == types.PhaseComplete {
				sessionID = uuid.NewString()
			}
		}
	}
}
