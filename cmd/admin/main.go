// Command admin is a maintenance CLI for operators. It talks to the same
// storage layer as the server, so it is safe to run against a live instance.
package main

import (
	"fmt"
	"log"
	"os"

	"orachat/backend/internal/storage"
	"orachat/backend/pkg/config"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	s := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <users|chats|reset-presence> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "users":
		if err := listUsers(s); err != nil {
			log.Fatalf("Error listing users: %v", err)
		}
	case "chats":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin chats <user_id>")
			os.Exit(1)
		}
		if err := listChats(s, os.Args[2]); err != nil {
			log.Fatalf("Error listing chats: %v", err)
		}
	case "reset-presence":
		if err := resetPresence(s); err != nil {
			log.Fatalf("Error resetting presence: %v", err)
		}
		fmt.Println("All users marked offline.")
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func listUsers(s storage.Storage) error {
	users, err := s.GetAllUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		status := "offline"
		if u.Online {
			status = "online"
		}
		fmt.Printf("%s  %-20s %-30s %s\n", u.ID, u.Username, u.Email, status)
	}
	return nil
}

func listChats(s storage.Storage, userID string) error {
	chats, err := s.GetUserChats(userID)
	if err != nil {
		return err
	}
	for _, c := range chats {
		fmt.Printf("%s  %s <-> %s  (%d messages)\n", c.ID, c.User1.Username, c.User2.Username, len(c.Messages))
	}
	return nil
}

// resetPresence clears stale online flags left behind by a server crash.
func resetPresence(s storage.Storage) error {
	users, err := s.GetAllUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if !u.Online {
			continue
		}
		if err := s.SetUserOnline(u.ID, false); err != nil {
			return err
		}
	}
	return nil
}
