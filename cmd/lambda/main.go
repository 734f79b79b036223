package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"immobilier-assistant/handler"
	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/integrations/gemini"
	"immobilier-assistant/internal/integrations/paramstore"
	"immobilier-assistant/internal/repository"
	"immobilier-assistant/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	model := os.Getenv("GEMINI_MODEL")
	language := envString("DEFAULT_LANGUAGE", string(domain.LanguageEnglish))
	historyWindow := envInt("HISTORY_WINDOW", 0)
	sessionTTL := envDuration("SESSION_TTL", repository.DefaultTTL)
	clientQuickReplies := envBool("CLIENT_QUICK_REPLIES", true)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	tokens, err := paramstore.NewParamToken(ssmClient, paramstore.TokenParameterName(paramPrefix, "gemini"))
	if err != nil {
		slog.Error("failed to create token source", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable, sessionTTL)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}
	geminiClient, err := gemini.NewClient(tokens, model)
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(usecase.ChatConfig{
		LLM:                geminiClient,
		Store:              stateClient,
		DefaultLanguage:    domain.Language(language),
		Logger:             logger,
		HistoryWindow:      historyWindow,
		ClientQuickReplies: clientQuickReplies,
	})
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService, usecase.NewCalculatorService(nil), logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
