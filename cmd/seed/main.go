package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/patsaid/ts-agentic-api/internal/config"
	"github.com/patsaid/ts-agentic-api/internal/db"
	"github.com/patsaid/ts-agentic-api/internal/model"
	"github.com/patsaid/ts-agentic-api/internal/repository"
)

// seedUser is a demo account created by the seed script.
type seedUser struct {
	Email    string
	Password string
}

var seedUsers = []seedUser{
	{Email: "alice@example.com", Password: "secret123"},
	{Email: "bob@example.com", Password: "hunter22"},
}

func main() {
	log.Println("Starting seed script...")

	_ = godotenv.Load()
	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Conversation{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)
	conversations := repository.NewConversationRepository(gormDB)

	var first *model.User
	for _, su := range seedUsers {
		existing, err := users.FindByEmail(ctx, su.Email)
		if err == nil {
			log.Printf("User %s already exists, skipping", su.Email)
			if first == nil {
				first = existing
			}
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("Failed to look up %s: %v", su.Email, err)
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		user := &model.User{
			ID:           uuid.New(),
			Email:        su.Email,
			PasswordHash: string(hashed),
		}
		if err := users.Create(ctx, user); err != nil {
			log.Fatalf("Failed to create %s: %v", su.Email, err)
		}
		log.Printf("Created user %s (%s)", su.Email, user.ID)
		if first == nil {
			first = user
		}
	}

	if first != nil {
		conversation := &model.Conversation{
			ID:      uuid.New(),
			UserID:  first.ID,
			Summary: "Who is the president of France?...",
		}
		if err := conversation.AppendMessage(model.Message{
			Question: "Who is the president of France?",
			Answer:   "The president of France is Emmanuel Macron.",
		}); err != nil {
			log.Fatalf("Failed to build demo conversation: %v", err)
		}
		if err := conversations.Create(ctx, conversation); err != nil {
			log.Fatalf("Failed to create demo conversation: %v", err)
		}
		log.Printf("Created demo conversation %s for %s", conversation.ID, first.Email)
	}

	log.Println("Seed complete")
}
