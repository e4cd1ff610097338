package models

import (
	"strings"
	"time"
)

// AttackKind is the attack taxonomy assigned to alerts and attack-labeled records.
type AttackKind string

const (
	KindNone               AttackKind = "none"
	KindHostHijack         AttackKind = "host_hijack"
	KindLinkFabrication    AttackKind = "link_fabrication"
	KindPortMigration      AttackKind = "port_migration"
	KindUnauthorizedSwitch AttackKind = "unauthorized_switch"
	KindUnknown            AttackKind = "unknown"
)

// ParseAttackKind maps free text to a known attack kind. Anything outside the
// closed set, including "none", becomes KindUnknown.
func ParseAttackKind(v string) AttackKind {
	switch AttackKind(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(v, "-", "_")))) {
	case KindHostHijack:
		return KindHostHijack
	case KindLinkFabrication:
		return KindLinkFabrication
	case KindPortMigration:
		return KindPortMigration
	case KindUnauthorizedSwitch:
		return KindUnauthorizedSwitch
	default:
		return KindUnknown
	}
}

// AlertEvent is one externally detected anomaly. OccurredAt is zero when only
// the raw timestamp text is known; the labeler resolves it.
type AlertEvent struct {
	OccurredAt time.Time  `json:"occurred_at,omitempty"`
	RawTime    string     `json:"raw_time,omitempty"`
	Kind       AttackKind `json:"kind"`
	Severity   string     `json:"severity,omitempty"`
	Source     string     `json:"source,omitempty"`
	RawMessage string     `json:"raw_message"`
}
