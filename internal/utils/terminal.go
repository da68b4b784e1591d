package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptChoice writes question to w and reads one line from r, returning
// the lowercased answer. An empty answer yields def. The reader is shared
// between prompts so buffered input is not lost.
func PromptChoice(r *bufio.Reader, w io.Writer, question, def string) (string, error) {
	fmt.Fprint(w, question)

	answer, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return def, nil
	}
	return answer, nil
}
