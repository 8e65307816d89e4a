package ui

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Interactive reports whether stdin is a terminal that can be prompted.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptPassword asks for the password of user@host without echo.
func PromptPassword(user, host string) (string, error) {
	if !Interactive() {
		return "", fmt.Errorf("password for %s@%s required but stdin is not a terminal", user, host)
	}

	var password string
	err := huh.NewInput().
		Title(fmt.Sprintf("Password for %s@%s", user, host)).
		Password(true).
		Value(&password).
		Run()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return password, nil
}

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not available on this system")
	}
	return clipboard.WriteAll(text)
}
