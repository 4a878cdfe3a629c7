// Command createadmin seeds the administrator account. Running it again is
// harmless.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/config"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/services"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to an optional config file")
	seed := services.AdminSeed{}
	flag.StringVar(&seed.Email, "email", "admin@example.com", "admin email")
	flag.StringVar(&seed.Password, "password", "Admin123", "admin password")
	flag.StringVar(&seed.FirstName, "first-name", "Admin", "first name")
	flag.StringVar(&seed.LastName, "last-name", "User", "last name")
	flag.StringVar(&seed.Phone, "phone", "1234567890", "phone number")
	flag.StringVar(&seed.EmployeeID, "employee-id", "ADMIN001", "employee id")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.App.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()
	seed.BcryptCost = cfg.Security.BcryptCost

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, db, err := config.ConnectDB(ctx, cfg.Mongo, log)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn("disconnect", zap.Error(err))
		}
	}()
	if err := repository.EnsureUserIndexes(ctx, db); err != nil {
		log.Error("user indexes", zap.Error(err))
		return
	}

	created, err := services.SeedAdmin(ctx, repository.NewMongoUserRepo(db), seed, time.Now())
	if err != nil {
		log.Error("creating admin", zap.Error(err))
		return
	}
	if !created {
		fmt.Println("Admin user already exists:", seed.Email)
		return
	}
	fmt.Println("Admin user created successfully")
	fmt.Println("Email:", seed.Email)
}
