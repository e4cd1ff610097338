package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdnlabel/pkg/models"
)

type rejectingDataset struct{}

func (rejectingDataset) WriteDataset(*models.LabeledDataset) error {
	return errors.New("clickhouse: connection reset")
}

func (rejectingDataset) Close() error { return nil }

func TestPublishSkipsArtifactWhenSinkFails(t *testing.T) {
	file := &memDataset{}
	sum := &memSummary{}
	o := &Outputs{Datasets: []DatasetWriter{rejectingDataset{}}, Artifact: file, Summaries: []SummaryWriter{sum}}

	err := o.Publish(&models.LabeledDataset{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, file.written, "no dataset file after a failed publish")
	assert.Empty(t, sum.summaries)
}

func TestPublishWritesArtifactLast(t *testing.T) {
	remote, file := &memDataset{}, &memDataset{}
	o := &Outputs{Datasets: []DatasetWriter{remote}, Artifact: file}

	require.NoError(t, o.Publish(&models.LabeledDataset{}))
	assert.Len(t, remote.written, 1)
	assert.Len(t, file.written, 1)
	require.NoError(t, o.Close())
}
