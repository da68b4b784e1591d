package gitsync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"
)

// Decision is the whole-file choice made for a conflicted bucket.
type Decision int

const (
	KeepLocal Decision = iota + 1
	AcceptRemote
)

func (d Decision) String() string {
	switch d {
	case KeepLocal:
		return "keep-local"
	case AcceptRemote:
		return "accept-remote"
	default:
		return "undecided"
	}
}

// Conflict describes one conflicted bucket file. Contents are never shown,
// only the modification times recorded by each side's manifest.
type Conflict struct {
	Path           string
	LocalModified  string
	RemoteModified string
}

// Resolver chooses a decision for every conflicted file.
type Resolver interface {
	Resolve(ctx context.Context, conflicts []Conflict) (map[string]Decision, error)
}

// NonInteractiveResolver keeps the local version of every file.
type NonInteractiveResolver struct{}

func (NonInteractiveResolver) Resolve(_ context.Context, conflicts []Conflict) (map[string]Decision, error) {
	decisions := make(map[string]Decision, len(conflicts))
	for _, c := range conflicts {
		decisions[c.Path] = KeepLocal
	}
	return decisions, nil
}

// PromptResolver asks on the terminal which version of each file to keep.
type PromptResolver struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewPromptResolver creates a PromptResolver reading from r.
func NewPromptResolver(r io.Reader, w io.Writer) *PromptResolver {
	return &PromptResolver{In: bufio.NewReader(r), Out: w}
}

func (p *PromptResolver) Resolve(ctx context.Context, conflicts []Conflict) (map[string]Decision, error) {
	decisions := make(map[string]Decision, len(conflicts))
	for _, c := range conflicts {
		if err := ctx.Err(); err != nil {
			return decisions, err
		}

		fmt.Fprintf(p.Out, "\n%s was changed on this device and on the remote.\n", c.Path)
		if c.LocalModified != "" || c.RemoteModified != "" {
			fmt.Fprintf(p.Out, "  local:  %s\n  remote: %s\n", orUnknown(c.LocalModified), orUnknown(c.RemoteModified))
		}

		for {
			answer, err := utils.PromptChoice(p.In, p.Out, "Keep [l]ocal or accept [r]emote? [l] ", "l")
			if err != nil {
				return decisions, fmt.Errorf("failed to read decision for %s: %w", c.Path, err)
			}

			switch strings.ToLower(answer) {
			case "l", "local":
				decisions[c.Path] = KeepLocal
			case "r", "remote":
				decisions[c.Path] = AcceptRemote
			default:
				fmt.Fprintf(p.Out, "Please answer 'l' or 'r'.\n")
				continue
			}
			break
		}
	}
	return decisions, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
