// Package shopmate wires the conversational commerce assistant: storage,
// read cache, commerce client, tool registry, the LLM provider chain, and
// the HTTP transport, assembled from one Config.
package shopmate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"shopmate/analytics"
	"shopmate/cache"
	"shopmate/commerce"
	"shopmate/config"
	"shopmate/engine"
	"shopmate/identity"
	"shopmate/llm"
	"shopmate/log"
	"shopmate/server"
	"shopmate/store"
	"shopmate/tools"
)

// App is the assembled application
type App struct {
	config    *config.Config
	store     store.Store
	cache     cache.ReadCache
	engine    *engine.Engine
	server    *server.Server
	analytics *analytics.Recorder
}

// New assembles the application from configuration
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	readCache, err := openCache(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	client, err := commerce.NewClient(cfg.Commerce.BaseURL, cfg.Commerce.Token, cfg.Commerce.Timeout())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create commerce client: %w", err)
	}
	reader := commerce.NewReader(client, readCache, cfg.Cache.CatalogTTL(), cfg.Cache.OrderTTL())

	resolver := identity.NewResolver(st, reader, cfg.Agent.ConversationWindow())

	registry := tools.NewRegistry()
	tools.RegisterCatalogTools(registry, reader)
	tools.RegisterOrderTools(registry, reader, resolver)

	providers, err := buildProviderChain(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	chain := engine.NewChain(providers, cfg.Agent.CallTimeout())

	rules, err := config.LoadChannelRules(cfg.ChannelRulesPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load channel rules: %w", err)
	}
	builder := engine.NewContextBuilder(st, loadKnowledge(cfg.KnowledgePath), rules, cfg.Agent.HistoryWindow)

	recorder, err := openAnalytics(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	eng, err := engine.New(engine.Options{
		Store:         st,
		Resolver:      resolver,
		Registry:      registry,
		Chain:         chain,
		Builder:       builder,
		Analytics:     recorder,
		MaxIterations: cfg.Agent.MaxToolIterations,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		config:    cfg,
		store:     st,
		cache:     readCache,
		engine:    eng,
		server:    server.NewServer(cfg, eng),
		analytics: recorder,
	}, nil
}

// Engine exposes the orchestrator, mainly for embedding and tests
func (a *App) Engine() *engine.Engine { return a.engine }

// Start runs the HTTP server until it stops
func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the server, flushes analytics and closes the store
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.analytics.Close(); cerr != nil {
		log.Log.Warnf("[App] Failed to close analytics | Error: %v", cerr)
	}
	if closer, ok := a.cache.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			log.Log.Warnf("[App] Failed to close cache | Error: %v", cerr)
		}
	}
	if cerr := a.store.Close(); cerr != nil {
		log.Log.Warnf("[App] Failed to close store | Error: %v", cerr)
	}
	return err
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite", "postgres":
		return store.NewSQLStore(cfg.Storage.Backend, cfg.Storage.DSN)
	case "mongo":
		return store.NewMongoStore(store.MongoStoreConfig{
			URI:      cfg.Storage.MongoURI,
			Database: cfg.Storage.MongoDatabase,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func openCache(cfg *config.Config) (cache.ReadCache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(time.Minute), nil
	case "redis":
		return cache.NewRedisCache(cfg.Cache.RedisURL, time.Duration(cfg.Cache.RedisTimeoutSec)*time.Second)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

// buildProviderChain assembles the fallback chain in the configured
// priority order; the static provider always terminates it.
func buildProviderChain(ctx context.Context, cfg *config.Config) ([]llm.Provider, error) {
	var providers []llm.Provider
	for _, name := range strings.Split(cfg.Providers.Priority, ",") {
		switch strings.TrimSpace(name) {
		case "openai":
			if cfg.Providers.OpenAIAPIKey == "" {
				log.Log.Warnf("[App] OpenAI API key is not set, skipping provider")
				continue
			}
			p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey:      cfg.Providers.OpenAIAPIKey,
				BaseURL:     cfg.Providers.OpenAIBaseURL,
				Model:       cfg.Providers.OpenAIModel,
				Temperature: cfg.Agent.Temperature,
				MaxTokens:   cfg.Agent.MaxTokens,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create openai provider: %w", err)
			}
			providers = append(providers, p)
		case "gemini":
			if cfg.Providers.GeminiAPIKey == "" {
				log.Log.Warnf("[App] Gemini API key is not set, skipping provider")
				continue
			}
			p, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
				APIKey:      cfg.Providers.GeminiAPIKey,
				Model:       cfg.Providers.GeminiModel,
				Temperature: cfg.Agent.Temperature,
				MaxTokens:   cfg.Agent.MaxTokens,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create gemini provider: %w", err)
			}
			providers = append(providers, p)
		case "":
		default:
			return nil, fmt.Errorf("unknown provider in priority list: %q", name)
		}
	}
	providers = append(providers, llm.NewStaticProvider(""))
	return providers, nil
}

func openAnalytics(cfg *config.Config) (*analytics.Recorder, error) {
	sink, err := analytics.NewAMQPSink(cfg.Analytics.AMQPURL, cfg.Analytics.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics sink: %w", err)
	}
	if sink == nil {
		return analytics.NewRecorder(nil, cfg.Analytics.BufferSize, cfg.Analytics.FlushInterval()), nil
	}
	return analytics.NewRecorder(sink, cfg.Analytics.BufferSize, cfg.Analytics.FlushInterval()), nil
}

// loadKnowledge reads the store knowledge text. Missing files are fine:
// the assistant then runs on the base prompt alone.
func loadKnowledge(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Log.Warnf("[App] Failed to read knowledge file | Path: %s | Error: %v", path, err)
		}
		return ""
	}
	return string(data)
}
