// Command main runs the demo data seeder for Agora.
package main

import (
	"context"
	"flag"
	"log"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 12, "Number of users to create")
	numThemata := flag.Int("themata", 4, "Number of themata to create")
	threads := flag.Int("threads", 3, "Threads per thema")
	comments := flag.Int("comments", 6, "Comments per thread")
	conversations := flag.Int("conversations", 6, "Number of conversations to create")
	messages := flag.Int("messages", 8, "Messages per conversation")
	shouldClean := flag.Bool("clean", true, "Delete existing themata before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	flag.Parse()

	log.Println("🌱 Demo Data Seeder")
	log.Println("===================")
	log.Printf("Target: %d users, %d themata, %d conversations, clean=%v\n",
		*numUsers, *numThemata, *conversations, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Println("⚠️  STORE_DRIVER=memory: seeded data vanishes when this process exits")
	}

	res, err := seed.Run(context.Background(), rt.Store, seed.Options{
		NumUsers:                *numUsers,
		NumThemata:              *numThemata,
		ThreadsPerThema:         *threads,
		CommentsPerThread:       *comments,
		NumConversations:        *conversations,
		MessagesPerConversation: *messages,
		Clean:                   *shouldClean,
		Seed:                    *randSeed,
	}, nil)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done: %d users, %d themata, %d threads, %d comments, %d conversations, %d messages\n",
		res.Users, res.Themata, res.Threads, res.Comments, res.Conversations, res.Messages)
}
