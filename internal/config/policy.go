package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Wildcard grants every permission to a role.
const Wildcard = "*"

// RolePolicy describes what a single role may do.
type RolePolicy struct {
	// CompanyScoped marks roles whose access is bound to a company
	// affiliation (e.g. recruiters). Such actors are rejected when they have
	// no company, and their credentials go stale when the company changes.
	CompanyScoped bool     `yaml:"company_scoped"`
	Permissions   []string `yaml:"permissions"`
}

// Policy maps role names to their RolePolicy.
type Policy struct {
	Roles map[string]RolePolicy `yaml:"roles"`
}

// DefaultPolicy mirrors the role set seeded by the migrations.
func DefaultPolicy() *Policy {
	return &Policy{
		Roles: map[string]RolePolicy{
			"ADMIN": {Permissions: []string{Wildcard}},
			"RECRUITER": {
				CompanyScoped: true,
				Permissions:   []string{"test_assign", "test_view", "test_review"},
			},
			"HR_MANAGER": {
				CompanyScoped: true,
				Permissions:   []string{"test_view", "test_review"},
			},
			"CANDIDATE": {Permissions: []string{"test_take"}},
		},
	}
}

// LoadPolicy reads a YAML role policy from path. An empty path returns DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML role policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	p := &Policy{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(p.Roles) == 0 {
		return nil, fmt.Errorf("parse policy: no roles defined")
	}
	return p, nil
}

// IsCompanyScoped reports whether role requires a company affiliation.
func (p *Policy) IsCompanyScoped(role string) bool {
	rp, ok := p.Roles[role]
	return ok && rp.CompanyScoped
}

// Allows reports whether role holds permission. Unknown roles hold nothing.
func (p *Policy) Allows(role, permission string) bool {
	rp, ok := p.Roles[role]
	if !ok {
		return false
	}
	for _, perm := range rp.Permissions {
		if perm == Wildcard || perm == permission {
			return true
		}
	}
	return false
}
