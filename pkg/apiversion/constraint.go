// Package apiversion checks the backend API version reported by responses
// against a SemVer constraint.
package apiversion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "apiversion:constraint"

// Header is the response header carrying the backend API version.
const Header = "X-API-Version"

var majorOnlyRegex = regexp.MustCompile(`^\d+$`)

// Constraint is a parsed version constraint such as "^2.1.0", "~1.4" or "2".
type Constraint struct {
	raw string
	c   *masterminds.Constraints
}

// IsMajorOnly reports whether expr is a bare major version (e.g. "2").
func IsMajorOnly(expr string) bool {
	return majorOnlyRegex.MatchString(strings.TrimSpace(expr))
}

// NewConstraint parses expr. A bare major version "N" means ">=N.0.0, <N+1.0.0".
func NewConstraint(expr string) (*Constraint, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return nil, fmt.Errorf("%s - empty constraint", logPrefix)
	}

	normalized := raw
	if IsMajorOnly(raw) {
		major, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s - invalid major %q: %w", logPrefix, raw, err)
		}
		normalized = fmt.Sprintf(">=%d.0.0, <%d.0.0", major, major+1)
	}

	c, err := masterminds.NewConstraint(normalized)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid constraint %q: %w", logPrefix, raw, err)
	}
	return &Constraint{raw: raw, c: c}, nil
}

// Check reports whether version satisfies the constraint. A "v" prefix is accepted.
func (c *Constraint) Check(version string) (bool, error) {
	v, err := masterminds.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false, fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	return c.c.Check(v), nil
}

func (c *Constraint) String() string {
	return c.raw
}
