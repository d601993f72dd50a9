// Command admintoken prints a bearer token for the /v1/admin routes, signed
// with ADMIN_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"instantride/internal/config"
	"instantride/internal/middleware"
)

func main() {
	subject := flag.String("sub", "ops", "operator name recorded in audit logs")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.Auth.AdminJWTSecret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := middleware.IssueAdminToken(cfg.Auth.AdminJWTSecret, *subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
