// Command optoken mints an operator token for POST /v1/venues.  It reads
// OPERATOR_SECRET from the environment (or .env) and prints the token.
package main

import (
	"flag" // command line options
	"fmt"  // token output
	"log"  // fatal errors
	"os"   // environment
	"time" // token lifetime

	"github.com/iliyamo/seat-picker/internal/config" // .env loading
	"github.com/iliyamo/seat-picker/internal/utils"  // token signing
)

func main() {
	subject := flag.String("sub", "", "who the token is issued to")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	config.LoadDotEnv()
	secret := os.Getenv("OPERATOR_SECRET")
	if secret == "" {
		log.Fatal("optoken: OPERATOR_SECRET is not set")
	}
	if *subject == "" {
		log.Fatal("optoken: -sub is required")
	}
	tok, exp, err := utils.NewOperatorToken(secret, *subject, *ttl)
	if err != nil {
		log.Fatalf("optoken: %v", err)
	}
	fmt.Println(tok)
	log.Printf("optoken: token for %s expires %s", *subject, exp.Format(time.RFC3339))
}
