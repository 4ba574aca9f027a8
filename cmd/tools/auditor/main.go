package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/order"
)

// auditor walks every stored order through the normalizer and reports
// records that would be skipped on the read path, plus per-field warning
// counts. Run it after importing legacy data to see what needs cleanup.
func main() {
	verbose := flag.Bool("v", false, "print every warning instead of counts only")
	pageSize := flag.Int("page", 200, "orders fetched per batch")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	store := &order.Store{Pool: pool}
	var n order.Normalizer

	var (
		total      int
		malformed  int
		unstable   int
		warnCounts = map[string]int{}
	)

	for offset := int32(0); ; offset += int32(*pageSize) {
		raws, err := store.List(ctx, nil, int32(*pageSize), offset)
		if err != nil {
			log.Fatalf("Failed to list orders: %v", err)
		}
		if len(raws) == 0 {
			break
		}
		for _, raw := range raws {
			total++
			o, err := n.Order(raw)
			if err != nil {
				malformed++
				log.Printf("MALFORMED %s: %v", raw.ID, err)
				continue
			}
			for _, w := range o.Warnings {
				warnCounts[w.Field]++
				if *verbose {
					log.Printf("WARN %s %s: %s", o.ID, w.Field, w.Message)
				}
			}
			if !roundTripStable(n, o) {
				unstable++
				log.Printf("UNSTABLE %s: normalize(raw(normalized)) differs", o.ID)
			}
		}
	}

	log.Printf("Audited %d orders: %d malformed, %d unstable", total, malformed, unstable)
	for field, count := range warnCounts {
		log.Printf("  warnings on %s: %d", field, count)
	}
	if malformed > 0 || unstable > 0 {
		os.Exit(1)
	}
}

// roundTripStable checks that serializing a normalized order back to the raw
// shape and normalizing it again yields the same canonical order. Drift here
// means the merge rules are lossy for this record.
func roundTripStable(n order.Normalizer, o order.Order) bool {
	again, err := n.Order(order.RawFromOrder(o))
	if err != nil {
		return false
	}
	a, errA := json.Marshal(stripVolatile(o))
	b, errB := json.Marshal(stripVolatile(again))
	if errA != nil || errB != nil {
		return reflect.DeepEqual(o, again)
	}
	return string(a) == string(b)
}

func stripVolatile(o order.Order) order.Order {
	o.Warnings = nil
	return o
}
