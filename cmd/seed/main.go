package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"leafscan/database"
	"leafscan/internal/config"
	"leafscan/internal/repository"
	"leafscan/internal/utils"
)

func main() {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	seedUser := seedCmd.Uint("user", 0, "User ID that owns the sample predictions")
	days := seedCmd.Int("days", utils.DefaultSeedDays, "Number of calendar days to fill, ending today")
	perDay := seedCmd.Int("per-day", utils.DefaultSeedPerDay, "Predictions per day")

	clearCmd := flag.NewFlagSet("clear", flag.ExitOnError)
	clearUser := clearCmd.Uint("user", 0, "User ID whose predictions are removed")

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "seed":
		seedCmd.Parse(os.Args[2:])
		repo := openRepository(cfg)

		if _, err := utils.SeedPredictions(ctx, repo, utils.SeedOptions{
			UserID:   *seedUser,
			Days:     *days,
			PerDay:   *perDay,
			Location: cfg.Location(),
		}); err != nil {
			log.Fatalf("Error seeding predictions: %v", err)
		}

	case "clear":
		clearCmd.Parse(os.Args[2:])
		if *clearUser == 0 {
			log.Fatal("--user is required")
		}
		repo := openRepository(cfg)

		if _, err := utils.ClearPredictions(ctx, repo, *clearUser); err != nil {
			log.Fatalf("Error clearing predictions: %v", err)
		}

	case "help", "-h", "--help":
		printHelp()

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func openRepository(cfg *config.Config) repository.PredictionRepository {
	db, err := database.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.MigrateDatabase(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	return repository.NewPredictionRepository(db)
}

func printHelp() {
	fmt.Println("Usage: seed <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  seed   --user ID [--days 7] [--per-day 3]   Insert sample predictions for a user")
	fmt.Println("  clear  --user ID                            Delete all predictions of a user")
	fmt.Println("  help                                        Show this message")
}
