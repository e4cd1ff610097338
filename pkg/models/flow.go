package models

import (
	"strconv"
	"time"
)

// Label is the binary ground-truth class of a flow record.
type Label int

const (
	LabelBenign Label = 0
	LabelAttack Label = 1
)

// MatchFields mirrors the OpenFlow match of a flow entry. Missing fields stay empty.
type MatchFields struct {
	InPort  string `json:"in_port,omitempty"`
	EthSrc  string `json:"eth_src,omitempty"`
	EthDst  string `json:"eth_dst,omitempty"`
	IPv4Src string `json:"ipv4_src,omitempty"`
	IPv4Dst string `json:"ipv4_dst,omitempty"`
	IPProto uint64 `json:"ip_proto,omitempty"`
	TpSrc   uint64 `json:"tp_src,omitempty"`
	TpDst   uint64 `json:"tp_dst,omitempty"`
}

// FlowRecord is one flow-table entry observed at one instant.
type FlowRecord struct {
	SwitchID        string      `json:"switch_id"`
	ObservedAt      time.Time   `json:"observed_at"`
	Round           int         `json:"round"`
	Scenario        string      `json:"scenario,omitempty"`
	Match           MatchFields `json:"match"`
	PacketCount     uint64      `json:"packet_count"`
	ByteCount       uint64      `json:"byte_count"`
	DurationSeconds uint64      `json:"duration_seconds"`
	Priority        uint64      `json:"priority"`
	IdleTimeout     uint64      `json:"idle_timeout"`
	HardTimeout     uint64      `json:"hard_timeout"`
	Actions         string      `json:"actions,omitempty"`
	Label           *Label      `json:"label"`
	AttackKind      AttackKind  `json:"attack_kind,omitempty"`
}

// Labeled reports whether a label has been assigned.
func (r FlowRecord) Labeled() bool {
	return r.Label != nil
}

// WithLabel returns a copy of r carrying the given label and kind.
func (r FlowRecord) WithLabel(label Label, kind AttackKind) FlowRecord {
	l := label
	r.Label = &l
	r.AttackKind = kind
	return r
}

var flowColumns = []string{
	"switch_id",
	"observed_at",
	"round",
	"scenario",
	"in_port",
	"eth_src",
	"eth_dst",
	"ipv4_src",
	"ipv4_dst",
	"ip_proto",
	"tp_src",
	"tp_dst",
	"packet_count",
	"byte_count",
	"duration_seconds",
	"priority",
	"idle_timeout",
	"hard_timeout",
	"actions",
	"label",
	"attack_kind",
}

// FlowColumns returns the dataset column order. The slice is a copy.
func FlowColumns() []string {
	return append([]string(nil), flowColumns...)
}

// TimeLayout is the timestamp encoding used in every tabular artifact.
const TimeLayout = time.RFC3339Nano

// Row renders r in FlowColumns order. Unlabeled records render an empty label.
func (r FlowRecord) Row() []string {
	label := ""
	if r.Label != nil {
		label = strconv.Itoa(int(*r.Label))
	}
	return []string{
		r.SwitchID,
		r.ObservedAt.UTC().Format(TimeLayout),
		strconv.Itoa(r.Round),
		r.Scenario,
		r.Match.InPort,
		r.Match.EthSrc,
		r.Match.EthDst,
		r.Match.IPv4Src,
		r.Match.IPv4Dst,
		strconv.FormatUint(r.Match.IPProto, 10),
		strconv.FormatUint(r.Match.TpSrc, 10),
		strconv.FormatUint(r.Match.TpDst, 10),
		strconv.FormatUint(r.PacketCount, 10),
		strconv.FormatUint(r.ByteCount, 10),
		strconv.FormatUint(r.DurationSeconds, 10),
		strconv.FormatUint(r.Priority, 10),
		strconv.FormatUint(r.IdleTimeout, 10),
		strconv.FormatUint(r.HardTimeout, 10),
		r.Actions,
		label,
		string(r.AttackKind),
	}
}
