package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(ctx, pool)
	seedFinishings(ctx, pool)
	seedEmployees(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []struct {
		Name     string
		Category string
		Unit     string
		Rules    pricing.Rules
	}{
		{"Stiker Vinyl A3", "stiker", "lembar", pricing.Rules{
			Model:     pricing.ModelUnit,
			BasePrice: 15_000,
		}},
		{"Pasang Tali Banner", "jasa", "meter", pricing.Rules{
			Model:     pricing.ModelLinear,
			BasePrice: 5_000,
		}},
		{"Spanduk Flexi 280gr", "banner", "m2", pricing.Rules{
			Model:     pricing.ModelArea,
			BasePrice: 25_000,
			Finishing: []pricing.FinishingGroup{
				{
					ID:    "mata-ayam",
					Label: "Mata Ayam",
					Type:  pricing.GroupTypeTextInput,
					Options: []pricing.FinishingGroupOption{
						{ID: "std", Label: "Standar", PriceAdd: 2_000},
					},
				},
			},
		}},
		{"Banner Cepat Ukuran Jadi", "banner", "pcs", pricing.Rules{
			Model: pricing.ModelMatrix,
			Matrix: []pricing.MatrixCell{
				{Material: "Flexi 280gr", Size: "2x1", Price: 60_000},
				{Material: "Flexi 280gr", Size: "3x1", Price: 85_000},
				{Material: "Flexi 340gr", Size: "2x1", Price: 80_000},
				{Material: "Flexi 340gr", Size: "3x1", Price: 110_000},
			},
		}},
		{"Kartu Nama Art Carton", "cetak", "box", pricing.Rules{
			Model:    pricing.ModelAdvanced,
			MinOrder: 100,
			Tiers: []pricing.Tier{
				{MinQty: 100, MaxQty: 499, Price: 350},
				{MinQty: 500, MaxQty: 999, Price: 250},
				{MinQty: 1000, Price: 180},
			},
		}},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		rules, err := json.Marshal(p.Rules)
		if err != nil {
			log.Fatalf("Failed to encode rules for %s: %v", p.Name, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO products (id, name, category, unit, rules)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET rules = EXCLUDED.rules, updated_at = now();
		`, uuid.NewString(), p.Name, p.Category, p.Unit, rules)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedFinishings(ctx context.Context, pool *pgxpool.Pool) {
	finishings := []struct {
		Name     string
		Category string
		Price    int64
		PerUnit  bool
		MinQty   int
	}{
		{"Mata Ayam", "banner", 2_000, true, 0},
		{"Laminasi Glossy", "cetak", 3_000, true, 0},
		{"Laminasi Doff", "cetak", 3_000, true, 0},
		{"Pasang Tali", "banner", 10_000, false, 0},
		{"Jilid Spiral", "dokumen", 8_000, false, 1},
	}

	log.Println("Seeding Finishing Options...")
	for _, f := range finishings {
		_, err := pool.Exec(ctx, `
			INSERT INTO finishing_options (id, name, category, price, per_unit, min_qty)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price;
		`, uuid.NewString(), f.Name, f.Category, f.Price, f.PerUnit, f.MinQty)
		if err != nil {
			log.Printf("Failed to seed finishing %s: %v", f.Name, err)
		}
	}
}

func seedEmployees(ctx context.Context, pool *pgxpool.Pool) {
	employees := []struct {
		Code string
		Name string
		Role string
		PIN  string
	}{
		{"ADM1", "Owner Grafity", "admin", "123456"},
		{"K01", "Dewi Lestari", "kasir", "1234"},
		{"K02", "Budi Santoso", "kasir", "1234"},
	}

	log.Println("Seeding Employees...")
	for _, e := range employees {
		hash, err := argon2id.CreateHash(e.PIN, argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("Failed to hash PIN for %s: %v", e.Code, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO employees (id, code, name, role, pin_hash)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO NOTHING;
		`, uuid.NewString(), e.Code, e.Name, e.Role, hash)
		if err != nil {
			log.Printf("Failed to seed employee %s: %v", e.Code, err)
		}
	}
}
