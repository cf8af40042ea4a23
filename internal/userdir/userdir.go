// Package userdir is a read-only user directory loaded from a YAML file. It backs the
// login and token-subject lookups of the zikauth command.
package userdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	zikauth "github.com/Fpierr/zikauth"
)

// Roles accepted in the directory file.
var validRoles = map[string]struct{}{
	"admin":    {},
	"promoter": {},
	"artist":   {},
	"fan":      {},
}

var ErrUserNotFound = errors.New("user not found")

// User is one directory entry.
type User struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
	Active       *bool  `yaml:"active"`
}

// IsActive treats a missing "active" field as true.
func (u User) IsActive() bool {
	return u.Active == nil || *u.Active
}

type file struct {
	Users []User `yaml:"users"`
}

// Directory indexes users by id and by lower-cased email.
type Directory struct {
	byID    map[string]User
	byEmail map[string]User
}

// Load reads a directory from path.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open user directory: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a directory document and validates every entry.
func Parse(r io.Reader) (*Directory, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode user directory: %w", err)
	}

	d := &Directory{
		byID:    make(map[string]User, len(doc.Users)),
		byEmail: make(map[string]User, len(doc.Users)),
	}
	for i, u := range doc.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("user %d: id is required", i)
		}
		if u.Email == "" {
			return nil, fmt.Errorf("user %q: email is required", u.ID)
		}
		if _, ok := validRoles[u.Role]; !ok {
			return nil, fmt.Errorf("user %q: unknown role %q", u.ID, u.Role)
		}
		if !strings.HasPrefix(u.PasswordHash, "$argon2id$") {
			return nil, fmt.Errorf("user %q: password_hash must be an argon2id PHC string", u.ID)
		}
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if _, dup := d.byID[u.ID]; dup {
			return nil, fmt.Errorf("user %q: duplicate id", u.ID)
		}
		if _, dup := d.byEmail[email]; dup {
			return nil, fmt.Errorf("user %q: duplicate email", u.ID)
		}
		d.byID[u.ID] = u
		d.byEmail[email] = u
	}
	return d, nil
}

// Len returns the number of users.
func (d *Directory) Len() int {
	return len(d.byID)
}

// ByEmail looks up a user by email, case-insensitively.
func (d *Directory) ByEmail(_ context.Context, email string) (User, error) {
	u, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// ByID looks up a user by id.
func (d *Directory) ByID(_ context.Context, id string) (User, error) {
	u, ok := d.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Provider adapts a Directory to zikauth.UserProvider. Identifiers are emails.
type Provider struct {
	dir *Directory
}

// NewProvider wraps d.
func NewProvider(d *Directory) *Provider {
	return &Provider{dir: d}
}

func (p *Provider) GetUserByIdentifier(ctx context.Context, identifier string) (zikauth.UserRecord, error) {
	u, err := p.dir.ByEmail(ctx, identifier)
	if err != nil {
		return zikauth.UserRecord{}, translate(err)
	}
	return record(u), nil
}

func (p *Provider) GetUserByID(ctx context.Context, userID string) (zikauth.UserRecord, error) {
	u, err := p.dir.ByID(ctx, userID)
	if err != nil {
		return zikauth.UserRecord{}, translate(err)
	}
	return record(u), nil
}

func translate(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return zikauth.ErrUserNotFound
	}
	return err
}

func record(u User) zikauth.UserRecord {
	return zikauth.UserRecord{
		UserID:       u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		Active:       u.IsActive(),
	}
}
