// Applies the registry and tenant schemas to arbitrary databases given
// plain connection strings. The server's own migrate subcommand covers the
// common case; this tool exists for provisioning new tenant databases from
// scripts.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/worksafe/worksafe/internal/store/postgres"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: migrate <registry|tenant> <connection-string>")
	}

	var schema string
	switch os.Args[1] {
	case "registry":
		schema = postgres.RegistrySchema
	case "tenant":
		schema = postgres.TenantSchema
	default:
		log.Fatalf("unknown schema %q, expected registry or tenant", os.Args[1])
	}

	ctx := context.Background()

	db, err := sql.Open("pgx", os.Args[2])
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to apply %s schema: %v", os.Args[1], err)
	}

	fmt.Printf("%s schema applied\n", os.Args[1])
}
