package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"taquilla/internal/inventory"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/config"
	"taquilla/internal/shared/database"
	"taquilla/internal/store/postgres"
	"taquilla/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Seeder struct {
	db        *database.DB
	inventory inventory.Service
}

func main() {
	fmt.Println("🌱 Starting Taquilla Database Seeder...")

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if cfg.UsesMemoryStore() {
		log.Fatalf("Seeder needs STORE_DRIVER=postgres, got %q", cfg.Store.Driver)
	}
	// The seeder writes through the store directly; no cache to keep warm
	cfg.Redis.Enabled = false

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	st := postgres.New(db.PostgreSQL, cfg.Store.MaxTxAttempts)
	seeder := &Seeder{
		db:        db,
		inventory: inventory.NewService(st, nil, 0, clock.NewSystem(), logger.Discard()),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates every store table
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"user_orders",
		"orders",
		"payment_intents",
		"seats",
		"pricing_tiers",
		"presentations",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll creates one numbered and one general-admission presentation, both on sale
func (s *Seeder) SeedAll(ctx context.Context) error {
	eventID := uuid.New()
	startsAt := time.Now().UTC().AddDate(0, 1, 0).Truncate(time.Hour)

	if err := s.seedNumbered(ctx, eventID, startsAt); err != nil {
		return fmt.Errorf("failed to seed numbered presentation: %w", err)
	}
	if err := s.seedGeneral(ctx, eventID, startsAt.Add(24*time.Hour)); err != nil {
		return fmt.Errorf("failed to seed general presentation: %w", err)
	}
	return nil
}

type seatBlock struct {
	section string
	rows    []string
	from    int
	to      int
	price   int64
}

func (s *Seeder) seedNumbered(ctx context.Context, eventID uuid.UUID, startsAt time.Time) error {
	p, err := s.inventory.CreatePresentation(ctx, inventory.CreatePresentationRequest{
		EventID:   eventID.String(),
		VenueID:   uuid.NewString(),
		VenueType: "numbered",
		StartsAt:  startsAt,
	})
	if err != nil {
		return err
	}

	blocks := []seatBlock{
		{section: "Platea", rows: []string{"A", "B", "C", "D", "E"}, from: 1, to: 20, price: 150000},
		{section: "Balcon", rows: []string{"F", "G", "H"}, from: 1, to: 30, price: 80000},
	}
	total := 0
	for _, b := range blocks {
		res, err := s.inventory.GenerateSeats(ctx, p.ID, inventory.GenerateSeatsRequest{
			Section:   b.section,
			Rows:      b.rows,
			From:      b.from,
			To:        b.to,
			UnitPrice: b.price,
			Currency:  "NIO",
		})
		if err != nil {
			return err
		}
		total += res.Created
	}

	fmt.Printf("  🎭 Numbered presentation %s: %d seats\n", p.ID, total)
	return nil
}

func (s *Seeder) seedGeneral(ctx context.Context, eventID uuid.UUID, startsAt time.Time) error {
	p, err := s.inventory.CreatePresentation(ctx, inventory.CreatePresentationRequest{
		EventID:   eventID.String(),
		VenueID:   uuid.NewString(),
		VenueType: "general",
		StartsAt:  startsAt,
	})
	if err != nil {
		return err
	}

	tiers := []inventory.CreateTierRequest{
		{Name: "General", UnitPrice: 50000, Currency: "NIO", Capacity: 500},
		{Name: "VIP", UnitPrice: 120000, Currency: "NIO", Capacity: 50},
	}
	for _, req := range tiers {
		tier, err := s.inventory.CreateTier(ctx, p.ID, req)
		if err != nil {
			return err
		}
		fmt.Printf("  🎟️  Tier %s (%s): %d tickets\n", tier.Name, tier.ID, tier.Capacity)
	}

	fmt.Printf("  🎪 General presentation %s\n", p.ID)
	return nil
}
