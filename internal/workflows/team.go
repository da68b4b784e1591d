package workflows

import (
	"context"

	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
)

// TeamResult contains the outcome of a team change.
type TeamResult struct {
	Member      configs.Member
	Fingerprint string

	// Recipients is the size of the recipient set after the change.
	Recipients int

	// Buckets lists the buckets re-encrypted for the new set. On a dry run
	// it lists the buckets that would be.
	Buckets []string

	// Skipped lists empty bucket files that were left alone.
	Skipped []string

	DryRun bool
}

// MemberInfo describes one entry of the recipient set for display.
type MemberInfo struct {
	Name        string `json:"name" yaml:"name"`
	PublicKey   string `json:"public_key" yaml:"public_key"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	AddedAt     string `json:"added_at,omitempty" yaml:"added_at,omitempty"`
	Owner       bool   `json:"owner" yaml:"owner"`
}

// AddMember gives a new public key access to every bucket.
//
// Every bucket is re-encrypted for the new recipient set before
// recipients.toml is saved. If re-encryption fails the registry on disk is
// unchanged.
//
// Returns ErrInvalidPublicKey, ErrDuplicateRecipient, ErrOwnerAsMember or
// ErrInvalidRecipientName when the member is rejected.
func AddMember(ctx context.Context, sess *Session, name, publicKey string, dryRun bool) (*TeamResult, error) {
	key, err := secrets.ParseRecipient(publicKey)
	if err != nil {
		return nil, err
	}

	next := sess.Registry.Clone()
	if err := next.Add(name, key); err != nil {
		return nil, err
	}
	member, _ := next.Find(name)

	return applyRegistry(ctx, sess, next, member, "team.add", dryRun)
}

// RemoveMember drops a member by name and re-encrypts every bucket without
// them.
//
// Returns ErrRecipientNotFound if no member has that name.
func RemoveMember(ctx context.Context, sess *Session, name string, dryRun bool) (*TeamResult, error) {
	next := sess.Registry.Clone()
	member, err := next.Remove(name)
	if err != nil {
		return nil, err
	}

	return applyRegistry(ctx, sess, next, member, "team.remove", dryRun)
}

// RevokeMember drops the member holding publicKey and re-encrypts every
// bucket without it. Copies the member already synced, including older
// commits, remain readable to them; rotate afterwards to rewrite history.
//
// Returns ErrRecipientNotFound if no member holds the key.
func RevokeMember(ctx context.Context, sess *Session, publicKey string, dryRun bool) (*TeamResult, error) {
	key, err := secrets.ParseRecipient(publicKey)
	if err != nil {
		return nil, err
	}

	next := sess.Registry.Clone()
	member, err := next.Revoke(key)
	if err != nil {
		return nil, err
	}

	return applyRegistry(ctx, sess, next, member, "team.revoke", dryRun)
}

// ListMembers returns the owner followed by every team member.
func ListMembers(sess *Session) []MemberInfo {
	owner := sess.Registry.Owner
	infos := []MemberInfo{{
		Name:        sess.Config.Device.Name,
		PublicKey:   owner.PublicKey.String(),
		Fingerprint: secrets.Fingerprint(owner.PublicKey),
		AddedAt:     formatTime(owner.UpdatedAt),
		Owner:       true,
	}}

	for _, m := range sess.Registry.MemberList() {
		infos = append(infos, MemberInfo{
			Name:        m.Name,
			PublicKey:   m.PublicKey.String(),
			Fingerprint: secrets.Fingerprint(m.PublicKey),
			AddedAt:     formatTime(m.AddedAt),
		})
	}
	return infos
}

func applyRegistry(_ context.Context, sess *Session, next *configs.Registry, member configs.Member, op string, dryRun bool) (*TeamResult, error) {
	result := &TeamResult{
		Member:      member,
		Fingerprint: secrets.Fingerprint(member.PublicKey),
		Recipients:  len(next.Recipients()),
		DryRun:      dryRun,
	}

	if dryRun {
		buckets, err := sess.Store.ListBuckets()
		if err != nil {
			return nil, err
		}
		result.Buckets = buckets
		return result, nil
	}

	snap, written, err := sess.Store.Reencrypt(next.Recipients(), sess.Identity)
	if err != nil {
		return nil, err
	}
	result.Buckets = written
	result.Skipped = snap.Skipped

	if err := configs.SaveRegistry(sess.Settings, next); err != nil {
		return nil, err
	}
	sess.Registry = next
	sess.Logger.Infof("Re-encrypted %d bucket(s) for %d recipient(s)", len(written), result.Recipients)

	entry := sess.Trail.Entry(op)
	entry.Member = member.Name
	entry.Fingerprint = result.Fingerprint
	entry.Recipients = result.Recipients
	entry.Buckets = written
	sess.Trail.Log(entry)

	return result, nil
}
