package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/ingestion"
)

var exchanges = []string{
	"What makes sourdough bread rise without commercial yeast?",
	"Wild yeast and lactobacilli in the starter ferment the dough and produce carbon dioxide.",
	"How do I keep a starter alive through a vacation?",
	"Refrigerate it after a feeding; it can sleep for a week or two between refreshes.",
	"Why does my crust come out pale?",
	"The oven is likely too cool or too dry; steam in the first ten minutes deepens the crust.",
	"What's the difference between a goroutine and a thread?",
	"Goroutines are scheduled by the Go runtime and start with tiny stacks, so you can run millions of them.",
	"When should I use a buffered channel?",
	"When the producer should be able to run ahead of the consumer by a bounded amount.",
	"How do I stop a goroutine that's blocked on a read?",
	"Close the channel it reads from, or select on a context's Done channel alongside the read.",
	"Which constellation is easiest to find in winter?",
	"Orion, by its three-star belt, dominates the southern sky on winter evenings.",
	"Why do stars twinkle but planets don't?",
	"Stars are point sources smeared by the atmosphere; planets are tiny disks that average it out.",
	"When is the next good meteor shower?",
	"The Perseids peak in mid August and are reliable even from the suburbs.",
	"How long should I rest a steak after cooking?",
	"About five minutes for a thin cut, up to ten for a thick one, so the juices redistribute.",
	"What oil is best for a cast iron pan?",
	"Any neutral oil with a high smoke point works; flaxseed polymerizes hardest for seasoning.",
	"Why did my hollandaise split?",
	"The butter went in too fast or the sauce got too hot; whisk in a spoonful of warm water to rescue it.",
	"What's a good first houseplant?",
	"A pothos tolerates low light and irregular watering better than almost anything else.",
	"How often should I repot a snake plant?",
	"Only when roots circle the pot, every two or three years at most.",
	"Why are my tomato leaves curling?",
	"Usually heat stress or inconsistent watering rather than disease.",
	"How does a bicycle stay upright?",
	"Mostly through steering corrections; gyroscopic effects help but aren't the main story.",
	"What tire pressure should I run on gravel?",
	"Lower than road pressure; start around 35 psi and tune for comfort against rim strikes.",
	"Is it worth waxing a chain?",
	"Immersion waxing keeps the drivetrain cleaner and lasts surprisingly long between treatments.",
	"What's the fastest way to learn a new codebase?",
	"Trace one real request end to end before reading anything in isolation.",
	"Should tests mock the database?",
	"Prefer a real in-memory instance when one exists; mocks drift from real behavior.",
	"How big should a pull request be?",
	"Small enough to review in one sitting; split refactors from behavior changes.",
	"Why does coffee taste sour sometimes?",
	"Under-extraction; grind finer or lengthen the brew time.",
	"What ratio should I use for pour over?",
	"Start at one to sixteen, coffee to water by weight, and adjust to taste.",
	"Does freezing beans ruin them?",
	"No, frozen whole beans keep well for months if sealed against moisture.",
}

var (
	dbPath       = flag.String("db", "./recall_db", "path to database directory")
	seedFileName = flag.String("src", "", "file of seed data, alternating user and assistant lines")
	turns        = flag.Int("turns", 6, "messages per seeded conversation")
	useMock      = flag.Bool("mock", false, "use the deterministic mock embedder instead of a live service")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// payloadsFromLines folds alternating user and assistant lines into
// conversation payloads of turnsPer messages each.
func payloadsFromLines(source iter.Seq[string], turnsPer int) []*ingestion.ConversationPayload {
	var payloads []*ingestion.ConversationPayload
	var current *ingestion.ConversationPayload

	base := time.Now().UTC().Add(-24 * time.Hour)
	i := 0
	for line := range source {
		if current == nil {
			createdAt := base.Add(time.Duration(len(payloads)) * time.Minute)
			current = &ingestion.ConversationPayload{
				ExternalId: fmt.Sprintf("seed-%03d", len(payloads)),
				Title:      line,
				CreatedAt:  createdAt,
			}
		}

		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		current.Messages = append(current.Messages, ingestion.MessagePayload{
			Role:      role,
			Content:   line,
			Timestamp: current.CreatedAt.Add(time.Duration(i) * time.Second),
		})
		i++

		if len(current.Messages) == turnsPer {
			payloads = append(payloads, current)
			current = nil
			i = 0
		}
	}

	if current != nil {
		payloads = append(payloads, current)
	}
	return payloads
}

func main() {
	var opts []recall.DatabaseOption
	if *useMock {
		opts = append(opts, recall.WithProvider(mock.NewMockProvider()))
	}

	db, err := recall.NewDatabase(*dbPath, opts...)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()

	var source iter.Seq[string]
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(exchanges)
	}

	payloads := payloadsFromLines(source, *turns)

	result, err := db.UpsertConversations(ctx, payloads...)
	if err != nil {
		panic(err)
	}

	if err := db.DrainEmbeddings(ctx); err != nil {
		panic(err)
	}

	slog.Info("seeding complete",
		"processed", result.Processed,
		"created", result.Created,
		"updated", result.Updated)
}
