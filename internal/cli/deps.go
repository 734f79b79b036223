package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"immobilier-assistant/internal/config"
	"immobilier-assistant/internal/integrations/gemini"
	"immobilier-assistant/internal/integrations/openai"
	"immobilier-assistant/internal/integrations/paramstore"
	"immobilier-assistant/internal/repository"
	"immobilier-assistant/internal/session"
)

// deps builds the adapters selected by a Config. The AWS configuration is
// only loaded when an SSM token or the DynamoDB backend is requested.
type deps struct {
	cfg    config.Config
	logger *slog.Logger

	loadAWS func(ctx context.Context) (aws.Config, error)

	once   sync.Once
	awsCfg aws.Config
	awsErr error
}

func newDeps(cfg config.Config, logger *slog.Logger) *deps {
	return &deps{
		cfg:    cfg,
		logger: logger,
		loadAWS: func(ctx context.Context) (aws.Config, error) {
			return awsconfig.LoadDefaultConfig(ctx)
		},
	}
}

func (d *deps) aws(ctx context.Context) (aws.Config, error) {
	d.once.Do(func() {
		d.awsCfg, d.awsErr = d.loadAWS(ctx)
	})
	if d.awsErr != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", d.awsErr)
	}
	return d.awsCfg, nil
}

// tokenSource prefers a key from the environment and falls back to the
// provider's SSM parameter.
func (d *deps) tokenSource(ctx context.Context) (paramstore.TokenSource, error) {
	if d.cfg.APIKey != "" {
		return paramstore.StaticToken(d.cfg.APIKey), nil
	}
	awsCfg, err := d.aws(ctx)
	if err != nil {
		return nil, err
	}
	client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	name := paramstore.TokenParameterName(d.cfg.ParamPrefix, d.cfg.LLMProvider)
	d.logger.Debug("reading provider token from parameter store", "parameter", name)
	return paramstore.NewParamToken(client, name)
}

func (d *deps) generator(ctx context.Context) (session.Generator, error) {
	tokens, err := d.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	switch d.cfg.LLMProvider {
	case config.ProviderOpenAI:
		var opts []openai.Option
		if d.cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(d.cfg.BaseURL))
		}
		return openai.NewClient(tokens, d.cfg.Model, opts...)
	case config.ProviderGemini:
		var opts []gemini.Option
		if d.cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(d.cfg.BaseURL))
		}
		return gemini.NewClient(tokens, d.cfg.Model, opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", d.cfg.LLMProvider)
	}
}

func (d *deps) store(ctx context.Context) (repository.Store, error) {
	switch d.cfg.SessionBackend {
	case config.BackendMemory:
		return repository.NewMemory(d.cfg.SessionTTL), nil
	case config.BackendDynamoDB:
		awsCfg, err := d.aws(ctx)
		if err != nil {
			return nil, err
		}
		return repository.New(awsdynamodb.NewFromConfig(awsCfg), d.cfg.StateTable, d.cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unsupported session backend %q", d.cfg.SessionBackend)
	}
}
