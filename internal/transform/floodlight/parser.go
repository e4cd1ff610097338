package floodlight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"sdnlabel/pkg/models"
)

// ErrMalformedSnapshot marks a snapshot whose structure cannot be a flow table.
var ErrMalformedSnapshot = errors.New("malformed flow snapshot")

// Match keys in preference order: Floodlight's legacy REST names first, then
// the OpenFlow 1.3 names newer controllers emit.
var (
	inPortKeys  = []string{"inPort", "in_port"}
	ethSrcKeys  = []string{"dataLayerSource", "eth_src"}
	ethDstKeys  = []string{"dataLayerDestination", "eth_dst"}
	ipv4SrcKeys = []string{"networkSource", "ipv4_src"}
	ipv4DstKeys = []string{"networkDestination", "ipv4_dst"}
	ipProtoKeys = []string{"networkProtocol", "ip_proto"}
	tpSrcKeys   = []string{"transportSource", "tp_src", "tcp_src", "udp_src"}
	tpDstKeys   = []string{"transportDestination", "tp_dst", "tcp_dst", "udp_dst"}
)

// Parse converts a Floodlight /wm/core/switch/all/flow/json payload into flow
// records. Round, ObservedAt and Scenario are left for the caller to stamp.
//
// An empty payload, JSON null, an empty object, a missing switch list, a null
// list and an empty list all yield zero records without error.
func Parse(payload []byte) ([]models.FlowRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if raw == nil {
		return nil, nil
	}

	switches, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, want object", ErrMalformedSnapshot, raw)
	}

	dpids := make([]string, 0, len(switches))
	for dpid := range switches {
		dpids = append(dpids, dpid)
	}
	sort.Strings(dpids)

	var records []models.FlowRecord
	for _, dpid := range dpids {
		entries, present, err := flowList(switches, dpid)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		for i, e := range entries {
			entry, ok := e.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: switch %s entry %d is %T, want object", ErrMalformedSnapshot, dpid, i, e)
			}
			records = append(records, parseEntry(dpid, entry))
		}
	}
	return records, nil
}

// flowList looks up the flow list of one switch. Presence is decided by the
// key and a non-null value, never by emptiness.
func flowList(switches map[string]interface{}, dpid string) ([]interface{}, bool, error) {
	v, ok := switches[dpid]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch val := v.(type) {
	case []interface{}:
		return val, len(val) > 0, nil
	case map[string]interface{}:
		// Some Floodlight builds wrap the list as {"flows": [...]}. A wrapper
		// without the key is an absent list.
		inner, ok := val["flows"]
		if !ok || inner == nil {
			return nil, false, nil
		}
		if list, ok := inner.([]interface{}); ok {
			return list, len(list) > 0, nil
		}
		return nil, false, fmt.Errorf("%w: switch %s flows are %T, want list", ErrMalformedSnapshot, dpid, inner)
	}
	return nil, false, fmt.Errorf("%w: switch %s flows are %T, want list", ErrMalformedSnapshot, dpid, v)
}

func parseEntry(dpid string, entry map[string]interface{}) models.FlowRecord {
	rec := models.FlowRecord{
		SwitchID:        dpid,
		PacketCount:     getUint(entry, "packetCount", "packet_count"),
		ByteCount:       getUint(entry, "byteCount", "byte_count"),
		DurationSeconds: getUint(entry, "durationSeconds", "duration_sec"),
		Priority:        getUint(entry, "priority"),
		IdleTimeout:     getUint(entry, "idleTimeoutSec", "idleTimeout", "idle_timeout_s"),
		HardTimeout:     getUint(entry, "hardTimeoutSec", "hardTimeout", "hard_timeout_s"),
		Actions:         renderActions(entry),
	}

	if m, ok := entry["match"].(map[string]interface{}); ok {
		rec.Match = models.MatchFields{
			InPort:  getString(m, inPortKeys...),
			EthSrc:  getString(m, ethSrcKeys...),
			EthDst:  getString(m, ethDstKeys...),
			IPv4Src: getString(m, ipv4SrcKeys...),
			IPv4Dst: getString(m, ipv4DstKeys...),
			IPProto: getUint(m, ipProtoKeys...),
			TpSrc:   getUint(m, tpSrcKeys...),
			TpDst:   getUint(m, tpDstKeys...),
		}
	}
	return rec
}

func renderActions(entry map[string]interface{}) string {
	if v, ok := entry["actions"]; ok && v != nil {
		return render(v)
	}
	if v, ok := getPath(entry, "instructions.instruction_apply_actions.actions"); ok && v != nil {
		return render(v)
	}
	return ""
}

func render(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func getString(root map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := root[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return val
		case json.Number:
			return val.String()
		case fmt.Stringer:
			return val.String()
		case float64:
			if val == math.Trunc(val) {
				return strconv.FormatInt(int64(val), 10)
			}
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}

// getUint reads a non-negative counter. Floodlight renders counters as either
// JSON numbers or decimal strings; anything unusable falls back to 0.
func getUint(root map[string]interface{}, keys ...string) uint64 {
	for _, key := range keys {
		v, ok := root[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case json.Number:
			return parseUint(val.String())
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
			return parseUint(val)
		case float64:
			if val <= 0 || math.IsNaN(val) {
				return 0
			}
			return uint64(val)
		case int:
			if val < 0 {
				return 0
			}
			return uint64(val)
		}
	}
	return 0
}

func parseUint(s string) uint64 {
	s = strings.TrimSpace(s)
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if u, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return u
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
		return uint64(f)
	}
	return 0
}

func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}
