package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// NoConnection stands in for the connection identity of data accesses that
// do not use a connection.
const NoConnection = "<no-connection>"

// KeyParam is one resolved parameter as it enters a key.
type KeyParam struct {
	Name  string
	Value string
}

// Key identifies one cached result. Two keys are equal iff every field is
// equal. Params are kept sorted by name.
type Key struct {
	Connection   string
	Query        string
	Params       []KeyParam
	Extra        string
	SettingsID   string
	DataAccessID string
}

// Equal reports whether both keys have the same fields.
func (k Key) Equal(other Key) bool {
	if k.Connection != other.Connection ||
		k.Query != other.Query ||
		k.Extra != other.Extra ||
		k.SettingsID != other.SettingsID ||
		k.DataAccessID != other.DataAccessID ||
		len(k.Params) != len(other.Params) {
		return false
	}
	for i := range k.Params {
		if k.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// String is the canonical encoding of the key. Distinct keys never share
// an encoding, so it is safe to use as a storage key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString("conn=")
	b.WriteString(strconv.Quote(k.Connection))
	b.WriteString(KeySeparator)
	b.WriteString("query=")
	b.WriteString(strconv.Quote(k.Query))
	b.WriteString(KeySeparator)
	b.WriteString("params={")
	for i, p := range k.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(p.Name))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(p.Value))
	}
	b.WriteString("}")
	b.WriteString(KeySeparator)
	b.WriteString("extra=")
	b.WriteString(strconv.Quote(k.Extra))
	b.WriteString(KeySeparator)
	b.WriteString("settings=")
	b.WriteString(strconv.Quote(k.SettingsID))
	b.WriteString(KeySeparator)
	b.WriteString("access=")
	b.WriteString(strconv.Quote(k.DataAccessID))
	return b.String()
}

// Digest is a short hash of String, for logs and size limited stores.
func (k Key) Digest() string {
	return strconv.FormatUint(xxhash.Sum64String(k.String()), 16)
}
