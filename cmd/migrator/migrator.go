package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"

	"github.com/NordCoder/Tubely/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	cmd := flag.String("cmd", "up", "goose command: up, down, status")
	flag.Parse()

	dbURL := os.Getenv("DB_DSN")
	if dbURL == "" {
		log.Fatal("DB_DSN is empty")
	}

	db, err := goose.OpenDBWithDriver("pgx", dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	dir, err := fs.Sub(migrations.Postgres, "postgres")
	if err != nil {
		log.Fatalf("migrations fs: %v", err)
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, dir)
	if err != nil {
		log.Fatalf("goose provider: %v", err)
	}

	ctx := context.Background()
	switch *cmd {
	case "up":
		res, err := p.Up(ctx)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Printf("migrations: applied %d", len(res))
	case "down":
		if _, err := p.Down(ctx); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("migrations: down OK")
	case "status":
		st, err := p.Status(ctx)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		for _, s := range st {
			log.Printf("%-8s %s", s.State, s.Source.Path)
		}
	default:
		log.Fatalf("unknown command %q", *cmd)
	}
}
