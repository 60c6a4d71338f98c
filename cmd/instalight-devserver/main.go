// Command instalight-devserver runs an in-memory backend with seeded
// users (alice, bob and carol, password "password") for local use.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fragmede/instalight/internal/config"
	"github.com/fragmede/instalight/internal/devserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] config: %v", err)
	}

	addr := flag.String("addr", cfg.DevServerAddr, "listen address")
	posts := flag.Int("posts", 12, "posts to seed per user")
	quiet := flag.Bool("quiet", false, "disable request logging")
	flag.Parse()

	store := devserver.NewStore()
	if err := devserver.Seed(store, *posts); err != nil {
		log.Fatalf("[ERROR] seed: %v", err)
	}
	srv := devserver.New(store, devserver.Options{
		Secret:      []byte(os.Getenv("INSTALIGHT_DEV_SECRET")),
		LogRequests: !*quiet,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		log.Fatalf("[ERROR] serve: %v", err)
	}
	log.Printf("[INFO] dev server stopped")
}
