package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptPassword reads a passphrase without echoing.
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(passphrase), nil
}
