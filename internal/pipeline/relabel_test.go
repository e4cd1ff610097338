package pipeline

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdnlabel/internal/labeler"
	"sdnlabel/internal/output/recordjson"
	"sdnlabel/pkg/models"
)

func writeTrail(t *testing.T, records []models.FlowRecord) recordjson.Trail {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trail.jsonl")
	w, err := recordjson.NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecords(records))
	require.NoError(t, w.Close())
	trail, err := recordjson.LoadTrail(path)
	require.NoError(t, err)
	return trail
}

func TestRelabelGroupsByScenario(t *testing.T) {
	base := time.Date(2026, 1, 5, 17, 0, 0, 0, time.UTC)
	trail := writeTrail(t, []models.FlowRecord{
		{SwitchID: "s1", Scenario: "normal", ObservedAt: base},
		{SwitchID: "s1", Scenario: "attack", ObservedAt: base.Add(100 * time.Second)},
		{SwitchID: "s2", Scenario: "normal", ObservedAt: base.Add(time.Second)},
	})
	events := []models.AlertEvent{{RawTime: "17:01:42.000", Kind: models.KindHostHijack}}

	ds, err := Relabel("offline", []recordjson.Trail{trail}, events, labeler.New(labeler.Config{HalfWidth: 5 * time.Second, Location: time.UTC}))
	require.NoError(t, err)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, []string{"normal", "attack"}, ds.Summary.Scenarios)
	assert.Equal(t, "s2", ds.Records[1].SwitchID)
	assert.Equal(t, models.LabelAttack, *ds.Records[2].Label)
	assert.Equal(t, models.KindHostHijack, ds.Records[2].AttackKind)
	assert.Equal(t, models.LabelBenign, *ds.Records[0].Label)
}

func TestRelabelRejectsForeignTrail(t *testing.T) {
	base := time.Date(2026, 1, 5, 17, 0, 0, 0, time.UTC)
	good := writeTrail(t, []models.FlowRecord{{SwitchID: "s1", Scenario: "normal", ObservedAt: base, PacketCount: 3}})

	foreign, err := recordjson.ReadTrail(strings.NewReader(
		`{"dpid":"s2","observed_at":"2026-01-05T17:00:01Z","pkts":7,"extra_feature":1}` + "\n"))
	require.NoError(t, err)
	foreign.Source = "foreign.jsonl"

	ds, err := Relabel("offline", []recordjson.Trail{good, foreign}, nil, labeler.New(labeler.Config{}))
	assert.Nil(t, ds)
	require.Error(t, err)
	assert.True(t, IsSchemaError(err), "got %v", err)
	assert.Contains(t, err.Error(), "extra_feature")
	assert.Contains(t, err.Error(), "switch_id")
}
