package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/bookbotclinic/bookbot/cmd/mainconfig"
	appconfig "github.com/bookbotclinic/bookbot/internal/config"
	"github.com/bookbotclinic/bookbot/internal/dialogue"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Test conversation with multiple turns
	messages := []dialogue.ChatMessage{
		{Role: dialogue.ChatRoleUser, Content: "Hi, do you do dental cleanings? How long does one take?"},
		{Role: dialogue.ChatRoleAssistant, Content: "We do! A dental cleaning takes 45 minutes and costs SGD 120. Would you like to book one?"},
		{Role: dialogue.ChatRoleUser, Content: "Maybe. Which locations are open on Saturdays?"},
	}

	systemPrompt := []string{
		"You are a friendly clinic booking assistant. Keep responses brief and helpful.",
	}

	req := dialogue.LLMRequest{
		System:      systemPrompt,
		Messages:    messages,
		MaxTokens:   200,
		Temperature: 0.7,
	}

	fmt.Println("LLM Provider Test")

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey != "" {
		fmt.Println("\n[1] Testing Gemini...")
		geminiClient, err := dialogue.NewGeminiLLMClient(ctx, geminiKey, cfg.GeminiModelID)
		if err != nil {
			fmt.Printf("    failed to create Gemini client: %v\n", err)
		} else {
			runCompletion(ctx, geminiClient, req)
			_ = geminiClient.Close()
		}
	} else {
		fmt.Println("\n[1] Skipping Gemini test (GEMINI_API_KEY not set)")
	}

	if cfg.BedrockModelID != "" {
		fmt.Println("\n[2] Testing Bedrock...")
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			fmt.Printf("    failed to load AWS config: %v\n", err)
		} else {
			client := dialogue.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
			req.Model = cfg.BedrockModelID
			runCompletion(ctx, client, req)
		}
	} else {
		fmt.Println("\n[2] Skipping Bedrock test (BEDROCK_MODEL_ID not set)")
	}
}

func runCompletion(ctx context.Context, client dialogue.LLMClient, req dialogue.LLMRequest) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("    error: %v\n", err)
		return
	}
	fmt.Printf("    response (%v):\n", elapsed.Round(time.Millisecond))
	fmt.Printf("    %s\n", resp.Text)
	fmt.Printf("    tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
