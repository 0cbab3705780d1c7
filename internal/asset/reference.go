package asset

import "strings"

// InternalScheme prefixes references owned by the blob store.
const InternalScheme = "internal:"

// Feature-scoped id prefixes used when minting internal references.
const (
	PrefixSearch    = "search-"
	PrefixBlueprint = "blueprint-"
	PrefixLogo      = "logo-"
)

// Kind classifies a reference by scheme.
type Kind int

const (
	KindEmpty Kind = iota
	KindInternal
	KindData
	KindBlob
	KindRemote
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindInternal:
		return "internal"
	case KindData:
		return "data"
	case KindBlob:
		return "blob"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Reference is a parsed asset reference.
type Reference struct {
	Raw  string
	Kind Kind
	// ID is the blob store id for internal references.
	ID string
}

// ParseReference classifies raw. Anything that is not empty or internal is
// passed through to the consumer unchanged.
func ParseReference(raw string) Reference {
	trimmed := strings.TrimSpace(raw)
	ref := Reference{Raw: raw}
	lower := strings.ToLower(trimmed)
	switch {
	case trimmed == "":
		ref.Kind = KindEmpty
	case strings.HasPrefix(trimmed, InternalScheme):
		ref.Kind = KindInternal
		ref.ID = strings.TrimPrefix(trimmed, InternalScheme)
	case strings.HasPrefix(lower, "data:"):
		ref.Kind = KindData
	case strings.HasPrefix(lower, "blob:"):
		ref.Kind = KindBlob
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		ref.Kind = KindRemote
	default:
		ref.Kind = KindUnknown
	}
	return ref
}

// InternalReference builds an internal reference from a feature prefix and id.
func InternalReference(prefix, id string) string {
	return InternalScheme + prefix + id
}

// IsInternal reports whether raw points into the blob store.
func IsInternal(raw string) bool {
	return ParseReference(raw).Kind == KindInternal
}
