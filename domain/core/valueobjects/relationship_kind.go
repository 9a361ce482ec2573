package valueobjects

import (
	"encoding/json"
	"fmt"
)

// RelationshipKind tells how a relationship came to exist.
type RelationshipKind string

const (
	// KindAIDetected marks an edge written by the relationship detector.
	KindAIDetected RelationshipKind = "ai_detected"
	// KindManual marks an edge the user created by hand.
	KindManual RelationshipKind = "manual"
)

// ParseRelationshipKind converts a stored string into a kind.
func ParseRelationshipKind(s string) (RelationshipKind, error) {
	switch RelationshipKind(s) {
	case KindAIDetected, KindManual:
		return RelationshipKind(s), nil
	default:
		return "", fmt.Errorf("unknown relationship kind %q", s)
	}
}

// String returns the wire form of the kind
func (k RelationshipKind) String() string {
	return string(k)
}

// IsManual reports whether the kind is KindManual
func (k RelationshipKind) IsManual() bool {
	return k == KindManual
}

// UnmarshalJSON rejects kinds outside the closed set
func (k *RelationshipKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRelationshipKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
