// Command terminaltoken mints the JWT a locker terminal presents to the
// /v1/equipment endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iliyamo/equipment-locker/internal/config"
	"github.com/iliyamo/equipment-locker/internal/utils"
)

func main() {
	config.LoadDotEnv()

	id := flag.String("id", "", "terminal id, stored as the token subject")
	ttl := flag.Duration("ttl", 365*24*time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("TERMINAL_JWT_SECRET"), "signing secret (default $TERMINAL_JWT_SECRET)")
	flag.Parse()

	if *id == "" || *secret == "" {
		flag.Usage()
		os.Exit(1)
	}

	tok, err := utils.NewTerminalToken(*secret, *id, *ttl)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Println(tok)
}
