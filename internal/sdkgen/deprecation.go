package sdkgen

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed deprecations.toml
var defaultRulesTOML []byte

// ErrBadVersion is returned for version strings that are not numeric
// dotted triples.
var ErrBadVersion = errors.New("malformed version")

// DeprecationRule renames an operation while keeping a shim under the old name
// until VersionRemoved.
type DeprecationRule struct {
	OldOperationID    string
	NewOperationID    string
	VersionIntroduced string
	VersionRemoved    string
}

type ruleRole int

const (
	roleNone ruleRole = iota
	// The operation carries the retired name.
	roleOld
	// The operation carries the replacement name.
	roleNew
)

// Rules indexes deprecation rules by both operation ids.
type Rules struct {
	byOld map[string]*DeprecationRule
	byNew map[string]*DeprecationRule
}

type ruleEntry struct {
	New        string `toml:"new"`
	Introduced string `toml:"introduced"`
	Removed    string `toml:"removed"`
}

// NewRules validates and indexes rules.
func NewRules(rules ...DeprecationRule) (*Rules, error) {
	r := &Rules{
		byOld: map[string]*DeprecationRule{},
		byNew: map[string]*DeprecationRule{},
	}
	for i := range rules {
		rule := rules[i]
		if rule.OldOperationID == "" || rule.NewOperationID == "" {
			return nil, fmt.Errorf("deprecation rule %d: old and new operation ids are required", i)
		}
		if _, err := parseVersion(rule.VersionIntroduced); err != nil {
			return nil, fmt.Errorf("deprecation rule %s: introduced: %w", rule.OldOperationID, err)
		}
		if _, err := parseVersion(rule.VersionRemoved); err != nil {
			return nil, fmt.Errorf("deprecation rule %s: removed: %w", rule.OldOperationID, err)
		}
		if _, dup := r.byOld[rule.OldOperationID]; dup {
			return nil, fmt.Errorf("deprecation rule %s: defined twice", rule.OldOperationID)
		}
		r.byOld[rule.OldOperationID] = &rule
		r.byNew[rule.NewOperationID] = &rule
	}
	return r, nil
}

// LoadRules decodes a TOML table keyed by the retired operation id:
//
//	[getOrgSiteSle]
//	new = "getOrgSitesSle"
//	introduced = "0.44.1"
//	removed = "0.45.0"
func LoadRules(r io.Reader) (*Rules, error) {
	var table map[string]ruleEntry
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&table); err != nil {
		return nil, fmt.Errorf("decode deprecation rules: %w", err)
	}
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rules := make([]DeprecationRule, 0, len(ids))
	for _, id := range ids {
		e := table[id]
		rules = append(rules, DeprecationRule{
			OldOperationID:    id,
			NewOperationID:    e.New,
			VersionIntroduced: e.Introduced,
			VersionRemoved:    e.Removed,
		})
	}
	return NewRules(rules...)
}

// DefaultRules returns the rule table compiled into the binary.
func DefaultRules() (*Rules, error) {
	return LoadRules(bytes.NewReader(defaultRulesTOML))
}

// Len returns the number of rules.
func (r *Rules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byOld)
}

// All returns the rules ordered by old operation id.
func (r *Rules) All() []DeprecationRule {
	if r == nil {
		return nil
	}
	out := make([]DeprecationRule, 0, len(r.byOld))
	for _, rule := range r.byOld {
		out = append(out, *rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OldOperationID < out[j].OldOperationID })
	return out
}

func (r *Rules) lookup(operationID string) (*DeprecationRule, ruleRole) {
	if r == nil {
		return nil, roleNone
	}
	if rule, ok := r.byOld[operationID]; ok {
		return rule, roleOld
	}
	if rule, ok := r.byNew[operationID]; ok {
		return rule, roleNew
	}
	return nil, roleNone
}

// ShouldEmitShim reports whether current is strictly below the removal
// version. Malformed versions never emit.
func ShouldEmitShim(rule DeprecationRule, current string) bool {
	cmp, err := compareVersions(current, rule.VersionRemoved)
	return err == nil && cmp < 0
}

// compareVersions compares numeric dotted triples segment by segment.
func compareVersions(a, b string) (int, error) {
	va, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}
	for i := range va {
		switch {
		case va[i] < vb[i]:
			return -1, nil
		case va[i] > vb[i]:
			return 1, nil
		}
	}
	return 0, nil
}

func parseVersion(v string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(strings.TrimSpace(v), ".")
	if len(parts) != 3 {
		return out, fmt.Errorf("%w %q: want MAJOR.MINOR.PATCH", ErrBadVersion, v)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return out, fmt.Errorf("%w %q: segment %q is not a number", ErrBadVersion, v, p)
		}
		out[i] = n
	}
	return out, nil
}

// ValidateVersion checks that v is a numeric dotted triple.
func ValidateVersion(v string) error {
	_, err := parseVersion(v)
	return err
}
