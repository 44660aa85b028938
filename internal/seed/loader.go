// Package seed provisions admin and evaluator accounts from a YAML file.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/contest-engine/internal/models"
)

// Provisioner creates accounts, reporting false for emails already registered
type Provisioner interface {
	ProvisionUser(ctx context.Context, name, email, password string, role models.Role, approved bool) (bool, error)
}

// File represents the YAML structure of a seed file
type File struct {
	Admins     []Account `yaml:"admins"`
	Evaluators []Account `yaml:"evaluators"`
}

// Account is one seeded user
type Account struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Approved *bool  `yaml:"approved"`
}

// Result counts what Apply did
type Result struct {
	Created int
	Skipped int
}

// LoadFile reads and parses a seed file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, a := range f.Admins {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("admins[%d]: %w", i, err)
		}
	}
	for i, a := range f.Evaluators {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("evaluators[%d]: %w", i, err)
		}
	}

	return &f, nil
}

func (a Account) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(a.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if a.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// Apply provisions every account. Admins are always approved; evaluators
// default to approved unless the file says otherwise.
func Apply(ctx context.Context, p Provisioner, f *File) (Result, error) {
	var res Result

	provision := func(a Account, role models.Role, approved bool) error {
		created, err := p.ProvisionUser(ctx, a.Name, a.Email, a.Password, role, approved)
		if err != nil {
			return fmt.Errorf("failed to seed %s %s: %w", role, a.Email, err)
		}
		if created {
			res.Created++
			slog.Info("seeded account", "email", models.NormalizeEmail(a.Email), "role", role)
		} else {
			res.Skipped++
			slog.Debug("seed account exists", "email", models.NormalizeEmail(a.Email), "role", role)
		}
		return nil
	}

	for _, a := range f.Admins {
		if err := provision(a, models.RoleAdmin, true); err != nil {
			return res, err
		}
	}

	for _, a := range f.Evaluators {
		approved := true
		if a.Approved != nil {
			approved = *a.Approved
		}
		if err := provision(a, models.RoleEvaluator, approved); err != nil {
			return res, err
		}
	}

	return res, nil
}

// ApplyFile loads path and applies it
func ApplyFile(ctx context.Context, p Provisioner, path string) (Result, error) {
	f, err := LoadFile(path)
	if err != nil {
		return Result{}, err
	}
	return Apply(ctx, p, f)
}
