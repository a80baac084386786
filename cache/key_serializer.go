package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// SearchSegment is the discriminator that separates search result lists
// from individually addressed entities within a namespace.
const SearchSegment = "search"

// MaxSegmentLength is the longest segment kept verbatim. Longer segments
// (typically pasted search text) are replaced by their xxhash digest.
const MaxSegmentLength = 128

const hashedSegmentPrefix = "h#"

// segmentEscaper makes sure separator characters in ids and queries can not
// forge a different composite key.
var segmentEscaper = strings.NewReplacer("%", "%25", ":", "%3A", "#", "%23")

// defaultKeySerializer joins escaped segments with KeySeparator.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from a namespace and segments. Equal inputs
// always produce equal keys, and distinct inputs never share a key except
// for hashed segments, which share one only on an xxhash collision.
func (s *defaultKeySerializer) SerializeKey(namespace string, parts ...string) string {
	var b strings.Builder
	b.WriteString(escapeSegment(namespace))
	for _, part := range parts {
		b.WriteString(KeySeparator)
		b.WriteString(s.serializeSegment(part))
	}
	return b.String()
}

func (s *defaultKeySerializer) serializeSegment(part string) string {
	if len(part) > MaxSegmentLength {
		return hashedSegmentPrefix + strconv.FormatUint(xxhash.Sum64String(part), 16)
	}
	return escapeSegment(part)
}

func escapeSegment(part string) string {
	if part == "" {
		return "%00"
	}
	return segmentEscaper.Replace(part)
}

// Keys builds the well known key shapes for a serializer.
type Keys struct {
	Serializer KeySerializer
}

// DefaultKeys uses the default serializer.
var DefaultKeys = Keys{Serializer: NewDefaultKeySerializer()}

// Entity returns the key of an individually addressed entity.
func (k Keys) Entity(namespace, id string) string {
	return k.serializer().SerializeKey(namespace, id)
}

// Search returns the key of the result list for query within namespace.
func (k Keys) Search(namespace, query string) string {
	return k.serializer().SerializeKey(namespace, SearchSegment, query)
}

// SearchPrefix returns the prefix shared by every search list of namespace.
func (k Keys) SearchPrefix(namespace string) string {
	return k.serializer().SerializeKey(namespace, SearchSegment) + KeySeparator
}

// NamespacePrefix returns the prefix shared by every key of namespace.
func (k Keys) NamespacePrefix(namespace string) string {
	return k.serializer().SerializeKey(namespace) + KeySeparator
}

func (k Keys) serializer() KeySerializer {
	if k.Serializer == nil {
		return NewDefaultKeySerializer()
	}
	return k.Serializer
}

// EntityKey returns the default key for (namespace, id).
func EntityKey(namespace, id string) string {
	return DefaultKeys.Entity(namespace, id)
}

// SearchKey returns the default key for (namespace, "search", query).
func SearchKey(namespace, query string) string {
	return DefaultKeys.Search(namespace, query)
}
