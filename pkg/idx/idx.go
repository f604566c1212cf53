package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero represents the zero value ID, don't use this unless its a placeholder.
const Zero ID = ""

// Record prefixes, these make ids in logs and API responses self describing.
const (
	PrefixFarmer       = "frm"
	PrefixAdmin        = "adm"
	PrefixSubsidy      = "sub"
	PrefixNotification = "ntf"
	PrefixMarketPrice  = "mkp"
)

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid id")

var (
	globalOnce sync.Once
	global     *generator
)

// generator is a tool to safely generate ULIDs concurrently using a monotonic
// source.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) NewAt(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := ulid.MustNew(ulid.Timestamp(t), g.entropy)
	return ID(u.String())
}

func initGlobal() {
	src := ulid.Monotonic(rand.Reader, 0) // Max Monotonic Window
	global = &generator{entropy: src}
}

// New returns a new lexicographically sortable ULID-based ID using the
// current time in UTC and a monotonic entropy source.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt generates an ID at the provided time (UTC), useful for tests or
// constructing time-bounded cursors.
func NewAt(t time.Time) ID {
	globalOnce.Do(initGlobal)
	return global.NewAt(t)
}

// NewPrefixed returns "<prefix>_<ULID>", e.g. frm_01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV.
func NewPrefixed(prefix string) ID {
	return ID(prefix + "_" + New().String())
}

// Parse parses a ULID string, with or without a record prefix, and
// validates its form.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}

	raw := s
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		if i == 0 {
			return Zero, ErrInvalid
		}
		raw = s[i+1:]
	}

	if _, err := ulid.ParseStrict(raw); err != nil {
		return Zero, ErrInvalid
	}

	return ID(s), nil
}

// ParsePrefixed is like Parse but also requires the given record prefix.
func ParsePrefixed(prefix, s string) (ID, error) {
	id, err := Parse(s)
	if err != nil {
		return Zero, err
	}
	if id.Prefix() != prefix {
		return Zero, ErrInvalid
	}
	return id, nil
}

// MustParse parses or panics. Useful for hard-coded IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		// Panic here so we don't put the program into an unknown state
		panic(err)
	}
	return id
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Prefix returns the record prefix, or "" for bare ULIDs.
func (id ID) Prefix() string {
	if i := strings.LastIndexByte(string(id), '_'); i > 0 {
		return string(id[:i])
	}
	return ""
}

// Time extracts the embedded UTC timestamp from the ID.
// If the ID is invalid or zero, it returns the zero time.
func (id ID) Time() time.Time {
	if id.IsZero() {
		return time.Time{}
	}

	raw := string(id)
	if p := id.Prefix(); p != "" {
		raw = raw[len(p)+1:]
	}

	u, err := ulid.ParseStrict(raw)
	if err != nil {
		return time.Time{}
	}

	// ULID time component is in ms since epoch.
	return ulid.Time(u.Time())
}

// Compare reports the lexical ordering between a and b.
// Returns -1 if a<b, 0 if a==b, +1 if a>b.
func Compare(a, b ID) int {
	return strings.Compare(a.String(), b.String())
}
