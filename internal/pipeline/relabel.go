package pipeline

import (
	"fmt"

	"sdnlabel/internal/dataset"
	"sdnlabel/internal/labeler"
	"sdnlabel/internal/output/recordjson"
	"sdnlabel/pkg/models"
)

// Relabel labels saved record trails against a set of alerts. Each trail's
// field set must match the flow columns; a divergent trail fails the run
// with a *dataset.SchemaError before anything is labeled. Records are
// grouped by scenario in first-seen order and each group keeps its order.
func Relabel(runID string, trails []recordjson.Trail, events []models.AlertEvent, lab *labeler.Labeler) (*models.LabeledDataset, error) {
	var order []string
	groups := map[string][]models.FlowRecord{}
	fields := map[string][]string{}
	for _, t := range trails {
		if err := dataset.CheckFields(t.Source, t.Fields); err != nil {
			return nil, fmt.Errorf("trail %s: %w", t.Source, err)
		}
		for _, r := range t.Records {
			if _, ok := groups[r.Scenario]; !ok {
				order = append(order, r.Scenario)
				fields[r.Scenario] = t.Fields
			}
			groups[r.Scenario] = append(groups[r.Scenario], r)
		}
	}

	asm := dataset.NewAssembler(runID)
	for _, name := range order {
		labeled, _, err := lab.Label(groups[name], events)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: label: %w", name, err)
		}
		err = asm.Add(dataset.Stream{Scenario: name, Fields: fields[name], Records: labeled})
		if err != nil {
			return nil, err
		}
	}
	return asm.Build()
}
