// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/reembed"
	"github.com/poiesic/recall/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Searchable archive for conversational transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest conversation transcripts from JSON files",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					dbFlag(),
					embeddingHostFlag(),
					embeddingModelFlag(),
				},
			},
			{
				Name:      "search",
				Usage:     "Find the conversations semantically closest to a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					dbFlag(),
					embeddingHostFlag(),
					embeddingModelFlag(),
				},
			},
			{
				Name:   "range",
				Usage:  "List conversations created within a date range",
				Action: rangeCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "from",
						Usage: "Start of range, inclusive (RFC 3339 or YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "End of range, inclusive (RFC 3339 or YYYY-MM-DD)",
					},
				},
			},
			{
				Name:   "reload",
				Usage:  "Re-enqueue and embed conversations missing an embedding",
				Action: reloadCommand,
				Flags: []cli.Flag{
					dbFlag(),
					embeddingHostFlag(),
					embeddingModelFlag(),
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a conversation, its messages, and its embedding",
				ArgsUsage: "EXTERNAL_ID",
				Action:    deleteCommand,
				Flags: []cli.Flag{
					dbFlag(),
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute every conversation embedding with a new model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					dbFlag(),
					embeddingHostFlag(),
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of conversations to process in each batch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N conversations",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func embeddingHostFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "embedding-host",
		Usage: "Embedding service host URL",
		Value: "http://localhost:11434/v1",
	}
}

func embeddingModelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "embedding-model",
		Usage: "Embedding model name",
		Value: "embeddinggemma",
	}
}

func openDatabase(c *cli.Context) (*recall.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)

	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := recall.NewDatabase(c.String("db"), recall.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one transcript file is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	var payloads []*ingestion.ConversationPayload
	for _, path := range c.Args().Slice() {
		loaded, err := loadPayloads(path)
		if err != nil {
			return err
		}
		payloads = append(payloads, loaded...)
	}

	result, err := db.UpsertConversations(ctx, payloads...)
	if err != nil {
		return fmt.Errorf("ingestion failed after %d conversations: %w", result.Processed, err)
	}

	// Wait for the background drainer by processing synchronously too;
	// both paths share the queue's single-claim guard.
	if err := db.DrainEmbeddings(ctx); err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	fmt.Printf("Processed %d conversations (%d created, %d updated)\n",
		result.Processed, result.Created, result.Updated)
	return nil
}

// loadPayloads reads one JSON file holding either a single conversation
// object or an array of them.
func loadPayloads(path string) ([]*ingestion.ConversationPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasPrefix(trimmed, "[") {
		var payloads []*ingestion.ConversationPayload
		if err := json.Unmarshal(data, &payloads); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return payloads, nil
	}

	var payload ingestion.ConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return []*ingestion.ConversationPayload{&payload}, nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a search query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Search(context.Background(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printResults(results)
	return nil
}

func rangeCommand(c *cli.Context) error {
	from, err := parseTimeFlag(c.String("from"))
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := parseTimeFlag(c.String("to"))
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	if from == nil && to == nil {
		return fmt.Errorf("at least one of --from and --to is required")
	}

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	convRepo, err := badger.NewConversationRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer convRepo.Close()

	ctx := context.Background()

	conversations, err := convRepo.FindByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("date range query failed: %w", err)
	}

	for _, conv := range conversations {
		fmt.Printf("%s  %s  (%d messages)  %s\n",
			conv.CreatedAt.Format(time.RFC3339), conv.ExternalId,
			conv.MessageCount, conv.Title)
	}
	fmt.Printf("%d conversations\n", len(conversations))
	return nil
}

// parseTimeFlag accepts RFC 3339 timestamps or bare dates. An empty value
// means the bound is open.
func parseTimeFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("unrecognized time %q", value)
}

func reloadCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	count, err := db.ReloadQueue(ctx)
	if err != nil {
		return fmt.Errorf("queue reload failed: %w", err)
	}

	if err := db.DrainEmbeddings(ctx); err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	fmt.Printf("Reloaded and embedded %d conversations\n", count)
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one external conversation ID is required")
	}
	externalId := c.Args().First()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	convRepo, err := badger.NewConversationRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer convRepo.Close()

	ctx := context.Background()

	conv, err := convRepo.FindByExternalId(ctx, externalId)
	if err != nil {
		return fmt.Errorf("failed to find conversation %q: %w", externalId, err)
	}

	if err := convRepo.Delete(ctx, conv.Id); err != nil {
		return fmt.Errorf("failed to delete conversation %q: %w", externalId, err)
	}

	fmt.Printf("Deleted conversation %s\n", externalId)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	convRepo, err := badger.NewConversationRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer convRepo.Close()

	msgRepo := badger.NewMessageRepository(backend)
	embRepo := badger.NewEmbeddingRepository(backend)

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)

	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder := reembed.NewReembedder(convRepo, msgRepo, embRepo, embedder, reembedConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}

func printResults(results []*core.ConversationResult) {
	for i, result := range results {
		fmt.Printf("%d. %s (distance %.4f)\n", i+1, result.Conversation.Title, result.Distance)
		fmt.Printf("   id=%s created=%s messages=%d\n",
			result.Conversation.ExternalId,
			result.Conversation.CreatedAt.Format(time.RFC3339),
			len(result.Messages))

		for _, msg := range result.Messages {
			content := msg.Content
			if len(content) > 120 {
				content = content[:117] + "..."
			}
			fmt.Printf("   %s: %s\n", msg.Role, content)
		}
		fmt.Println()
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
