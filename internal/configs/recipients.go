package configs

import (
	"fmt"
	"os"
	"time"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"
)

// Owner is this device's own public key. It is always the first recipient.
type Owner struct {
	PublicKey secrets.Recipient `toml:"public_key"`
	UpdatedAt time.Time         `toml:"updated_at"`
}

// Member is a team member who can decrypt every bucket.
type Member struct {
	Name      string            `toml:"name"`
	PublicKey secrets.Recipient `toml:"public_key"`
	AddedAt   time.Time         `toml:"added_at"`
}

// Registry is the recipient set: the owner followed by team members in the
// order they were added. It is stored in recipients.toml and never synced.
type Registry struct {
	Owner   Owner    `toml:"owner"`
	Members []Member `toml:"members"`
}

// NewRegistry creates a registry with no team members.
func NewRegistry(owner secrets.Recipient) *Registry {
	return &Registry{
		Owner: Owner{PublicKey: owner, UpdatedAt: now()},
	}
}

// Clone returns a copy that can be mutated without touching r.
func (r *Registry) Clone() *Registry {
	c := &Registry{Owner: r.Owner}
	c.Members = append([]Member(nil), r.Members...)
	return c
}

// Add registers a new member.
func (r *Registry) Add(name string, key secrets.Recipient) error {
	if !utils.IsValidRecipientName(name) {
		return fmt.Errorf("%w: %q", kerrors.ErrInvalidRecipientName, name)
	}
	if key.IsZero() {
		return kerrors.ErrInvalidPublicKey
	}
	if key.Equal(r.Owner.PublicKey) {
		return kerrors.ErrOwnerAsMember
	}

	for _, m := range r.Members {
		if m.Name == name {
			return fmt.Errorf("%w: name %q is already registered", kerrors.ErrDuplicateRecipient, name)
		}
		if m.PublicKey.Equal(key) {
			return fmt.Errorf("%w: key is already registered as %q", kerrors.ErrDuplicateRecipient, m.Name)
		}
	}

	r.Members = append(r.Members, Member{Name: name, PublicKey: key, AddedAt: now()})
	return nil
}

// Remove drops the member with the given name and returns it.
func (r *Registry) Remove(name string) (Member, error) {
	for i, m := range r.Members {
		if m.Name == name {
			r.Members = append(r.Members[:i:i], r.Members[i+1:]...)
			return m, nil
		}
	}
	return Member{}, fmt.Errorf("%w: %q", kerrors.ErrRecipientNotFound, name)
}

// Revoke drops the member holding key and returns it.
func (r *Registry) Revoke(key secrets.Recipient) (Member, error) {
	for i, m := range r.Members {
		if m.PublicKey.Equal(key) {
			r.Members = append(r.Members[:i:i], r.Members[i+1:]...)
			return m, nil
		}
	}
	return Member{}, fmt.Errorf("%w: %s", kerrors.ErrRecipientNotFound, secrets.Fingerprint(key))
}

// Find looks a member up by name.
func (r *Registry) Find(name string) (Member, bool) {
	for _, m := range r.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// SetOwner replaces the owner key, as done at the end of a rotation.
func (r *Registry) SetOwner(key secrets.Recipient) {
	r.Owner = Owner{PublicKey: key, UpdatedAt: now()}
}

// Recipients returns the deduplicated recipient set, owner first.
func (r *Registry) Recipients() []secrets.Recipient {
	out := make([]secrets.Recipient, 0, len(r.Members)+1)
	out = append(out, r.Owner.PublicKey)

	for _, m := range r.Members {
		dup := false
		for _, seen := range out {
			if seen.Equal(m.PublicKey) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m.PublicKey)
		}
	}
	return out
}

// MemberList returns a copy of the team members in registry order.
func (r *Registry) MemberList() []Member {
	return append([]Member(nil), r.Members...)
}

// LoadRegistry reads recipients.toml.
func LoadRegistry(s *Settings) (*Registry, error) {
	path := s.RecipientsPath()
	if err := secrets.CheckPrivateFile(path); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no recipient registry at %s", kerrors.ErrNotInitialized, path)
	}

	reg := &Registry{}
	if err := LoadTOML(path, reg); err != nil {
		return nil, fmt.Errorf("failed to load recipient registry: %w", err)
	}
	if reg.Owner.PublicKey.IsZero() {
		return nil, fmt.Errorf("failed to load recipient registry: %w: missing owner key", kerrors.ErrInvalidPublicKey)
	}

	return reg, nil
}

// SaveRegistry writes recipients.toml atomically with mode 0600.
func SaveRegistry(s *Settings, reg *Registry) error {
	if err := SaveTOML(s.RecipientsPath(), reg, 0600); err != nil {
		return fmt.Errorf("failed to save recipient registry: %w", err)
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
