package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"sdnlabel/config"
	"sdnlabel/internal/alerts"
	"sdnlabel/internal/logger"
	"sdnlabel/internal/output/datasetcsv"
	"sdnlabel/internal/output/recordjson"
	"sdnlabel/internal/output/summaryjson"
	"sdnlabel/internal/pipeline"
	"sdnlabel/internal/rules"
	"sdnlabel/pkg/models"
)

// runLabel relabels saved record trails against an alert log without
// touching the controller.
func runLabel(args []string) int {
	fs := flag.NewFlagSet("label", flag.ContinueOnError)
	records := fs.String("records", "", "Comma-separated record trail JSONL files")
	alertsPath := fs.String("alerts", "", "Controller log or alert JSONL file")
	output := fs.String("output", "output/dataset.csv", "Labeled CSV output path")
	summary := fs.String("summary", "", "Summary JSON output path (default: next to output)")
	halfWidth := fs.Duration("half-width", 0, "Alert window half-width (default 10s)")
	offset := fs.Duration("offset", 0, "Clock offset added to every alert time")
	location := fs.String("location", "", "Time zone for zone-less alert timestamps")
	rulesPath := fs.String("rules", "", "Optional Sigma rule file or directory")
	verbose := fs.Bool("v", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*records) == "" {
		fmt.Fprintln(os.Stderr, "-records is required")
		return 2
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(true, level, "", true); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	var trails []recordjson.Trail
	for _, path := range splitList(*records) {
		trail, err := recordjson.LoadTrail(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load records from %s: %v\n", path, err)
			return 1
		}
		trails = append(trails, trail)
	}

	var events []models.AlertEvent
	if *alertsPath != "" {
		classifier, err := rules.NewClassifier(*rulesPath != "", *rulesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load rules: %v\n", err)
			return 1
		}
		events, err = alerts.NewFileSource(*alertsPath, classifier).Events(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read alerts: %v\n", err)
			return 1
		}
	}

	lab, err := newLabeler(config.LabelingConfig{HalfWidth: *halfWidth, EventClockOffset: *offset, Location: *location})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	ds, err := pipeline.Relabel(uuid.NewString(), trails, events, lab)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labeling failed, no dataset written: %v\n", err)
		return 1
	}

	summaryPath := *summary
	if summaryPath == "" {
		summaryPath = strings.TrimSuffix(*output, ".csv") + ".summary.json"
	}
	csvWriter, err := datasetcsv.NewWriter(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	summaryWriter, err := summaryjson.NewWriter(summaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	outputs := &pipeline.Outputs{
		Artifact:  csvWriter,
		Summaries: []pipeline.SummaryWriter{summaryWriter},
	}
	defer outputs.Close()
	if err := outputs.Publish(ds); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	fmt.Printf("labeled records=%d alerts=%d attack=%d output=%s\n",
		ds.Summary.TotalRecords, len(events), ds.Summary.LabelCounts[models.LabelAttack], *output)
	return 0
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
