package workflows

import (
	"errors"
	"os"

	"github.com/Ay7ot/ctx-sync-sub001/internal/audit"
	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
)

// LogOptions filters the audit trail.
type LogOptions struct {
	// Operations keeps only entries whose op is listed. Empty keeps all.
	Operations []string

	// Limit keeps the most recent entries. Zero keeps all.
	Limit int

	// Reverse lists the most recent entry first.
	Reverse bool
}

// ReadLog returns this device's audit entries, oldest first unless
// Reverse is set. The trail is local to the device and never synced.
//
// Returns ErrNotInitialized if init has not been run.
func ReadLog(opts OpenOptions, filter LogOptions) ([]audit.Entry, error) {
	settings, err := resolveSettings(opts.Settings)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(settings.IdentityPath()); errors.Is(err, os.ErrNotExist) {
		return nil, kerrors.ErrNotInitialized
	}

	entries, err := (&audit.Trail{Path: settings.AuditPath()}).ReadEntries()
	if err != nil {
		return nil, err
	}

	if len(filter.Operations) > 0 {
		wanted := make(map[string]bool, len(filter.Operations))
		for _, op := range filter.Operations {
			wanted[op] = true
		}
		kept := entries[:0]
		for _, e := range entries {
			if wanted[e.Operation] {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[len(entries)-filter.Limit:]
	}

	if filter.Reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries, nil
}
