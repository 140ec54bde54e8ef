package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"zonemonitor/internal/database"
)

// Creates the event database schema and optionally prints recent
// events, for inspecting a deployment without the server running.
func main() {
	dbPath := flag.String("db", "data/events.db", "Event database path")
	kind := flag.String("kind", "", "Filter by event kind")
	limit := flag.Int("limit", 20, "Maximum events to print")
	flag.Parse()

	db, err := database.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Event database ready at %s\n", *dbPath)

	events, err := db.Events(&database.EventFilter{Kind: *kind, Limit: *limit})
	if err != nil {
		log.Fatalf("Failed to query events: %v", err)
	}

	if len(events) == 0 {
		fmt.Println("No events recorded")
		return
	}

	for _, e := range events {
		fmt.Printf("%s  %-20s %-12s %s\n",
			e.Timestamp.Format(time.RFC3339), e.Kind, e.Subject, e.Detail)
	}
}
