package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-auth/pkg/tokenengine"
)

// tokengen mints a token pair for ad-hoc testing, or inspects the claims of
// an existing token with -verify.
func main() {
	secret := flag.String("secret", "very-secure-jwt-secret", "HMAC secret for signing")
	issuer := flag.String("issuer", "simple-auth", "Issuer of the token")
	audience := flag.String("audience", "simple-auth", "Audience of the token")
	accountID := flag.String("account", "", "Account ID (random if empty)")
	username := flag.String("username", "testuser", "Username claim")
	permissions := flag.String("permissions", "", "Comma-separated permissions")
	epoch := flag.Int64("epoch", 0, "Token epoch claim")
	accessExpiry := flag.Duration("access-expiry", tokenengine.DefaultAccessTokenExpiry, "Access token lifetime")
	verify := flag.String("verify", "", "Verify an access token and dump its claims instead of minting")
	flag.Parse()

	engine := tokenengine.NewEngine(
		tokenengine.NewHMACSigner(*secret),
		*issuer,
		*audience,
		tokenengine.WithAccessTokenExpiry(*accessExpiry),
	)

	if *verify != "" {
		claims, err := engine.Verify(*verify, tokenengine.KindAccess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: verification failed: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Println(string(out))
		return
	}

	id := uuid.New()
	if *accountID != "" {
		parsed, err := uuid.Parse(*accountID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid account ID: %v\n", err)
			os.Exit(1)
		}
		id = parsed
	}

	var perms []string
	if *permissions != "" {
		perms = strings.Split(*permissions, ",")
	}

	pair, err := engine.IssuePair(tokenengine.ClaimsSource{
		AccountID:   id,
		Username:    *username,
		Permissions: perms,
		Epoch:       *epoch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to issue tokens: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Account: %s\n", id)
	fmt.Printf("Access:  %s\n", pair.AccessToken)
	fmt.Printf("  expires %s\n", pair.AccessExpiry.Format(time.RFC3339))
	fmt.Printf("Refresh: %s\n", pair.RefreshToken)
	fmt.Printf("  expires %s\n", pair.RefreshExpiry.Format(time.RFC3339))
}
