package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// passphraseEnv lets scripts supply the passphrase without a terminal.
const passphraseEnv = "SHIELD_PASSPHRASE"

// readPassphrase prompts for the private key passphrase. Input is not echoed
// when stdin is a terminal; otherwise one line is read from stdin.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// readNewPassphrase asks twice when interactive and requires both entries to match.
func readNewPassphrase() (string, error) {
	p, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	if os.Getenv(passphraseEnv) != "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return p, nil
	}

	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if confirm != p {
		return "", fmt.Errorf("passphrases do not match")
	}
	return p, nil
}
