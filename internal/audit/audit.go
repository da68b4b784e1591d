package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"

	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Entry is one line of the audit trail. It never carries secret values or
// key material, only names, fingerprints and counts.
type Entry struct {
	ID         string `json:"id"`
	Timestamp  string `json:"ts"`
	Device     string `json:"device"`
	DeviceUUID string `json:"device_uuid"`
	Operation  string `json:"op"`

	Buckets     []string `json:"buckets,omitempty"`     // state set/unset, rotate.
	Member      string   `json:"member,omitempty"`      // team add/remove/revoke.
	Fingerprint string   `json:"fingerprint,omitempty"` // team add/revoke, rotate.
	Recipients  int      `json:"recipients,omitempty"`  // team changes, rotate.
	Committed   bool     `json:"committed,omitempty"`   // sync.
	Pushed      bool     `json:"pushed,omitempty"`      // sync.
	Conflicts   []string `json:"conflicts,omitempty"`   // sync.
	Warnings    int      `json:"warnings,omitempty"`    // rotate.
}

// Trail appends entries to the audit.jsonl file of a config directory.
type Trail struct {
	Path       string
	Device     string
	DeviceUUID string
}

// New builds a Trail for the given settings and device.
func New(s *configs.Settings, device configs.Device) *Trail {
	return &Trail{Path: s.AuditPath(), Device: device.Name, DeviceUUID: device.ID}
}

// Entry returns an entry for op with the device fields filled in.
func (t *Trail) Entry(op string) Entry {
	return Entry{Operation: op, Device: t.Device, DeviceUUID: t.DeviceUUID}
}

// Log appends entry to the trail. Failures are ignored: an operation never
// fails because it could not be recorded.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.Path == "" {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(timestampLayout)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f, err := os.OpenFile(t.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads every entry of the trail. A missing file yields no
// entries.
func (t *Trail) ReadEntries() ([]Entry, error) {
	data, err := os.ReadFile(t.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data. Malformed lines, such as a partial
// write, are skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}
