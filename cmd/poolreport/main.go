// poolreport prints today's pool totals from a PostgreSQL deployment.
//
//	go run ./cmd/poolreport [-date 2024-05-01]
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	date := flag.String("date", time.Now().Format("2006-01-02"), "quota day to report (YYYY-MM-DD)")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	var activeCodes, remainingUses int64
	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(remaining_uses), 0)
		FROM codes
		WHERE remaining_uses > 0
	`).Scan(&activeCodes, &remainingUses)
	if err != nil {
		log.Fatalf("Failed to read active codes: %v", err)
	}

	var posted, claimed int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM codes WHERE date_str = $1`, *date).Scan(&posted); err != nil {
		log.Fatalf("Failed to count posts: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM claims WHERE date_str = $1`, *date).Scan(&claimed); err != nil {
		log.Fatalf("Failed to count claims: %v", err)
	}

	fmt.Printf("Pool report for %s\n", *date)
	fmt.Printf("  active codes:   %d\n", activeCodes)
	fmt.Printf("  remaining uses: %d\n", remainingUses)
	fmt.Printf("  codes posted:   %d\n", posted)
	fmt.Printf("  claims:         %d\n", claimed)

	rows, err := db.Query(`
		SELECT user_id, COUNT(*) AS n
		FROM claims
		WHERE date_str = $1
		GROUP BY user_id
		ORDER BY n DESC
		LIMIT 10
	`, *date)
	if err != nil {
		log.Fatalf("Failed to list top claimants: %v", err)
	}
	defer rows.Close()

	fmt.Println("  top claimants:")
	for rows.Next() {
		var userID string
		var n int64
		if err := rows.Scan(&userID, &n); err != nil {
			log.Fatalf("Failed to scan claimant: %v", err)
		}
		fmt.Printf("    %-32s %d\n", userID, n)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed to iterate claimants: %v", err)
	}
}
