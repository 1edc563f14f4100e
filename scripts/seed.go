// Seed script for creating demo memories.
// Run with: go run ./scripts/seed.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment
	envFile := os.Getenv("YUMI_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	memoryStore := store.NewMemoryStore(pool)

	now := time.Now()
	eventDue := now.Add(3 * 24 * time.Hour)

	demos := []domain.Memory{
		{
			Type:       domain.MemoryTypeIdentity,
			Content:    "Goes by Alex, works as a pediatric nurse",
			Importance: 0.9,
			Confidence: 0.95,
			CreatedAt:  now.AddDate(0, -2, 0),
		},
		{
			Type:       domain.MemoryTypePreference,
			Content:    "Drinks oat milk lattes, never regular milk",
			Importance: 0.6,
			Confidence: 0.8,
			CreatedAt:  now.AddDate(0, -1, 0),
		},
		{
			Type:       domain.MemoryTypeSkill,
			Content:    "Learning woodworking, building a bookshelf first",
			Importance: 0.7,
			Confidence: 0.85,
			CreatedAt:  now.AddDate(0, 0, -20),
		},
		{
			Type:       domain.MemoryTypeProject,
			Content:    "Renovating the guest bathroom over the summer",
			Importance: 0.8,
			Confidence: 0.9,
			CreatedAt:  now.AddDate(0, 0, -12),
		},
		{
			Type:       domain.MemoryTypePerson,
			Content:    "Sister Maya just moved to Portland for a new job",
			Importance: 0.75,
			Confidence: 0.9,
			CreatedAt:  now.AddDate(0, 0, -8),
		},
		{
			Type:       domain.MemoryTypeEvent,
			Content:    "Half-marathon coming up this Saturday",
			Importance: 0.85,
			Confidence: 0.95,
			CreatedAt:  now.AddDate(0, 0, -5),
			ExpiresAt:  &eventDue,
		},
		{
			Type:       domain.MemoryTypeOpinion,
			Content:    "Thinks open offices kill productivity",
			Importance: 0.5,
			Confidence: 0.7,
			CreatedAt:  now.AddDate(0, 0, -3),
		},
	}

	for i := range demos {
		demos[i].ID = uuid.New()
		demos[i].Source = domain.MemorySource{ConversationID: "seed", ExtractedAt: now}
		if err := memoryStore.Create(ctx, &demos[i]); err != nil {
			log.Fatalf("failed to seed memory %q: %v", demos[i].Content, err)
		}
		fmt.Printf("seeded [%s] %s\n", demos[i].Type, demos[i].Content)
	}

	fmt.Printf("done: %d memories\n", len(demos))
}
