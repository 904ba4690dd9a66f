// Command tokengen issues bearer tokens for the fernet auth mode.
//
// Usage:
//
//	tokengen -key <base64 key> -user user_1
//	tokengen -genkey
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ndewijer/portfolio-service/internal/auth"
)

func main() {
	_ = godotenv.Load()

	key := flag.String("key", os.Getenv("AUTH_FERNET_KEY"), "fernet key (defaults to AUTH_FERNET_KEY)")
	user := flag.String("user", "user_1", "user id to embed in the token")
	genKey := flag.Bool("genkey", false, "print a new random key and exit")
	flag.Parse()

	if err := run(*key, *user, *genKey); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(key, user string, genKey bool) error {
	if genKey {
		k, err := auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		fmt.Println(k)
		return nil
	}

	if key == "" {
		return fmt.Errorf("no key given: pass -key or set AUTH_FERNET_KEY")
	}

	f, err := auth.NewFernet(0, key)
	if err != nil {
		return err
	}
	token, err := f.Issue(user)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
