// seed inserts a demo user, a few folders and sample documents into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ErlanBelekov/snapdocs/internal/credentials"
	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/snapdocs/internal/storage"
	"github.com/ErlanBelekov/snapdocs/internal/usecase"
	"github.com/lmittmann/tint"
)

const (
	seedEmail    = "seed@test.local"
	seedUsername = "seeduser"
	seedPassword = "Seed-Passw0rd!"
)

type folderSpec struct {
	name  string
	color string
	icon  string
}

var folders = []folderSpec{
	{"Invoices", "#F59E0B", "receipt"},
	{"Contracts", "#10B981", "file-signature"},
}

type docSpec struct {
	folder string
	name   string
	body   string
	tags   []string
}

var docs = []docSpec{
	{"General", "welcome.txt", "Welcome to snapdocs.\n", []string{"intro"}},
	{"Invoices", "invoice-2024-001.txt", "Invoice 2024-001\nTotal: 120.00 EUR\n", []string{"invoice", "2024"}},
	{"Invoices", "invoice-2024-002.txt", "Invoice 2024-002\nTotal: 89.90 EUR\n", []string{"invoice", "2024"}},
	{"Contracts", "lease-agreement.txt", "Lease agreement draft\n", []string{"legal"}},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	user, err := upsertUser(ctx, postgres.NewUserRepository(pool))
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	store, err := storage.NewLocalStore(uploadDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	folderUC := usecase.NewFolderUsecase(postgres.NewFolderRepository(pool), logger)
	if _, err := folderUC.EnsureDefault(ctx); err != nil {
		log.Fatalf("default folder: %v", err)
	}

	// Create folders, skip any that already exist (idempotent re-runs)
	for _, spec := range folders {
		_, err := folderUC.Create(ctx, usecase.CreateFolderInput{Name: spec.name, Color: spec.color, Icon: spec.icon})
		if err != nil && !errors.Is(err, domain.ErrFolderNameConflict) {
			log.Fatalf("create folder %s: %v", spec.name, err)
		}
	}

	documentUC := usecase.NewDocumentUsecase(
		postgres.NewDocumentRepository(pool),
		folderUC,
		store,
		10<<20,
		[]string{"txt"},
		logger,
	)

	var uploaded []*domain.Document
	for _, spec := range docs {
		d, err := documentUC.Upload(ctx, usecase.UploadInput{
			OwnerID:     user.ID,
			FileName:    spec.name,
			ContentType: "text/plain",
			Size:        int64(len(spec.body)),
			Content:     bytes.NewReader([]byte(spec.body)),
			FolderName:  spec.folder,
			Tags:        spec.tags,
		})
		if err != nil {
			log.Fatalf("upload %s: %v", spec.name, err)
		}
		uploaded = append(uploaded, d)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:      %s / %s\n", seedEmail, seedPassword)
	fmt.Printf("  User ID:   %s\n", user.ID)
	fmt.Printf("  Documents: %d uploaded into %s\n", len(uploaded), uploadDir)
	for _, d := range uploaded {
		fmt.Printf("    %s  %s\n", d.ID, d.Name)
	}

	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1: log in as the seed user:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8000/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", seedEmail, seedPassword)
	fmt.Println()
	fmt.Println("  Step 2: list and search documents:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8001/api/v1/documents -H \"Authorization: Bearer $JWT\"")
	fmt.Println("    curl -s 'http://localhost:8001/api/v1/search?q=invoice' -H \"Authorization: Bearer $JWT\"")
}

func upsertUser(ctx context.Context, users *postgres.UserRepository) (*domain.User, error) {
	existing, err := users.FindByEmail(ctx, seedEmail)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := credentials.NewHasher(0).Hash(seedPassword)
	if err != nil {
		return nil, err
	}
	return users.Create(ctx, &domain.User{
		Email:        strings.ToLower(seedEmail),
		Username:     seedUsername,
		PasswordHash: hash,
		IsActive:     true,
	})
}
