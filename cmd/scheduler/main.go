package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/service"
)

func main() {
	log.Println("Starting ledger scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ledgerService := service.NewLedgerService(
		repository.NewUnitOfWork(db),
		repository.NewRepositories(db),
		redisClient,
		cfg,
	)

	// Initialize cron scheduler
	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %s: %v", cfg.Scheduler.Timezone, err)
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily sweep of overdue schedule rows
	_, err = c.AddFunc(cfg.Scheduler.OverdueCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		counts, err := ledgerService.SweepOverdue(ctx, time.Now())
		if err != nil {
			log.Printf("Overdue sweep failed: %v", err)
			return
		}

		log.Printf("Overdue sweep complete: %d loans with overdue installments", len(counts))
		for loanID, count := range counts {
			log.Printf("Loan %s has %d overdue installments", loanID, count)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling overdue sweep job: %v", err)
	}

	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}
