package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/finwatch/expense-importer/internal/adapters/gmail"
	"github.com/finwatch/expense-importer/internal/config"
	"github.com/finwatch/expense-importer/internal/core"
	"github.com/finwatch/expense-importer/internal/extract"
	"github.com/finwatch/expense-importer/internal/factory"
	"github.com/finwatch/expense-importer/internal/jsonrepair"
	"github.com/finwatch/expense-importer/internal/logging"
	"github.com/finwatch/expense-importer/internal/ratelimit"
	"github.com/finwatch/expense-importer/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text utilities and the JSON repair engine
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}
	if err := container.Provide(jsonrepair.New); err != nil {
		return nil, err
	}

	// Register the rate-limited fetcher
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*ratelimit.Fetcher, error) {
		rl, err := cfg.GetRateLimit()
		if err != nil {
			return nil, err
		}
		profile, err := ratelimit.ProfileByName(rl.Profile)
		if err != nil {
			return nil, err
		}
		retry := ratelimit.RetryPolicy{MaxAttempts: rl.MaxAttempts, BaseDelay: rl.BaseDelay}
		return ratelimit.NewFetcher(profile, retry, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return nil, err
	}

	// Register the text generator
	if err := container.Provide(func(f *factory.LLMFactory) (core.TextGenerator, error) {
		return f.CreateTextGenerator()
	}); err != nil {
		return nil, err
	}

	// Register the expense repository
	if err := container.Provide(func(f *factory.StorageFactory) (core.ExpenseRepository, error) {
		return f.CreateExpenseRepository()
	}); err != nil {
		return nil, err
	}

	// Register the message source
	if err := container.Provide(func(cfg *config.Config, fetcher *ratelimit.Fetcher, logger *zap.Logger) core.MessageSource {
		mail := cfg.GetMail()
		return gmail.NewClient(mail.BaseURL, mail.AccessToken, mail.PageSize, fetcher, logger)
	}); err != nil {
		return nil, err
	}

	// Register the field extractor
	if err := container.Provide(func(cfg *config.Config, text *utils.TextProcessor, logger *zap.Logger) core.FieldExtractor {
		return extract.NewExtractor(cfg.GetImport().DefaultCurrency, text, logger)
	}); err != nil {
		return nil, err
	}

	// Register the categorizer
	if err := container.Provide(func(
		gen core.TextGenerator,
		repair *jsonrepair.Engine,
		fetcher *ratelimit.Fetcher,
		text *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.Categorizer, error) {
		cc, err := cfg.GetCategorize()
		if err != nil {
			return nil, err
		}
		return core.NewCategorizer(gen, repair, fetcher, text, logger, cc.ChunkSize, cc.ChunkDelay), nil
	}); err != nil {
		return nil, err
	}

	// Register the import service
	if err := container.Provide(core.NewImportService); err != nil {
		return nil, err
	}

	return container, nil
}
