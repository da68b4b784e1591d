package workflows

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	"github.com/Ay7ot/ctx-sync-sub001/internal/state"
)

// BucketInfo describes a bucket without decrypting it.
type BucketInfo struct {
	Name     string `json:"name" yaml:"name"`
	Modified string `json:"modified,omitempty" yaml:"modified,omitempty"`
	Size     int64  `json:"size" yaml:"size"`
}

// GetBucket decrypts a bucket. A bucket that does not exist is empty.
//
// Returns a decryption error if this device cannot open the bucket.
func GetBucket(sess *Session, name string) (state.Document, error) {
	return sess.Store.ReadBucket(name, sess.Identity)
}

// SetValue stores value under key in a bucket, creating the bucket when
// needed, and re-encrypts it for the full recipient set.
func SetValue(sess *Session, bucket, key string, value any) error {
	doc, err := sess.Store.ReadBucket(bucket, sess.Identity)
	if err != nil {
		return err
	}
	doc[key] = value

	if err := sess.Store.WriteBucket(bucket, doc, sess.Recipients()); err != nil {
		return err
	}

	entry := sess.Trail.Entry("state.set")
	entry.Buckets = []string{bucket}
	sess.Trail.Log(entry)
	return nil
}

// UnsetValue removes key from a bucket. It reports false when the key was
// not present, in which case nothing is written.
func UnsetValue(sess *Session, bucket, key string) (bool, error) {
	doc, err := sess.Store.ReadBucket(bucket, sess.Identity)
	if err != nil {
		return false, err
	}
	if _, ok := doc[key]; !ok {
		return false, nil
	}
	delete(doc, key)

	if err := sess.Store.WriteBucket(bucket, doc, sess.Recipients()); err != nil {
		return false, err
	}

	entry := sess.Trail.Entry("state.unset")
	entry.Buckets = []string{bucket}
	sess.Trail.Log(entry)
	return true, nil
}

// DeleteBucket removes a whole bucket.
func DeleteBucket(sess *Session, bucket string) error {
	if err := sess.Store.DeleteBucket(bucket); err != nil {
		return err
	}

	entry := sess.Trail.Entry("state.delete")
	entry.Buckets = []string{bucket}
	sess.Trail.Log(entry)
	return nil
}

// ListBuckets lists every bucket with the time the manifest recorded for it.
func ListBuckets(sess *Session) ([]BucketInfo, error) {
	names, err := sess.Store.ListBuckets()
	if err != nil {
		return nil, err
	}
	manifest, err := sess.Store.Manifest()
	if err != nil {
		return nil, err
	}

	infos := make([]BucketInfo, 0, len(names))
	for _, name := range names {
		info := BucketInfo{Name: name, Modified: manifest.Files[state.FileName(name)]}
		if size, err := fileSize(sess.Store.BucketPath(name)); err == nil {
			info.Size = size
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ParseValue interprets a command line value as JSON when it is valid JSON
// and as a plain string otherwise.
func ParseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

// SortedKeys returns the keys of a document in sorted order.
func SortedKeys(doc state.Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func saveConfig(sess *Session) error {
	return configs.SaveUserConfig(sess.Settings, sess.Config)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
