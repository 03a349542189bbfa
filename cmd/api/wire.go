package main

import (
	"context"
	"fmt"

	"go-tripplanner/internal/config"
	"go-tripplanner/internal/store"
	"go-tripplanner/internal/store/file"
	"go-tripplanner/internal/store/firestore"
	"go-tripplanner/internal/store/memory"
	s3store "go-tripplanner/internal/store/s3"
	"go-tripplanner/pkg/llm"
)

func newCompleter(ctx context.Context, cfg config.LLMConfig) (llm.Completer, error) {
	switch cfg.Provider {
	case "mock":
		return llm.NewMock(), nil
	case "gemini":
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:      cfg.APIKey,
			Project:     cfg.Project,
			Location:    cfg.Location,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
		})
	case "openai":
		return llm.NewOpenAI(cfg.Model, cfg.APIKey, cfg.Temperature)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "file":
		return file.New(cfg.Path)
	case "firestore":
		return firestore.New(ctx, cfg.Firestore.Project, cfg.Firestore.Collection)
	case "s3":
		client := s3store.NewClient(s3store.ClientConfig{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		return s3store.New(s3store.WithClient(client), s3store.WithBucket(cfg.S3.Bucket), s3store.WithPrefix(cfg.S3.Prefix))
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
