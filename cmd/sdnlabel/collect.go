package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"sdnlabel/config"
	"sdnlabel/internal/alerts"
	"sdnlabel/internal/api"
	"sdnlabel/internal/controller"
	inputnats "sdnlabel/internal/input/nats"
	inputredis "sdnlabel/internal/input/redis"
	"sdnlabel/internal/labeler"
	"sdnlabel/internal/logger"
	"sdnlabel/internal/metrics"
	"sdnlabel/internal/output/alertjson"
	"sdnlabel/internal/output/datasetclickhouse"
	"sdnlabel/internal/output/datasetcsv"
	"sdnlabel/internal/output/recordjson"
	"sdnlabel/internal/output/summaryhttp"
	"sdnlabel/internal/output/summaryjson"
	"sdnlabel/internal/pipeline"
	"sdnlabel/internal/rules"
	"sdnlabel/pkg/models"
)

func loadConfig(configArg string) (*config.Config, string) {
	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	lc := cfg.SDNLabel.Logging
	if err := logger.Init(lc.Enabled, lc.Level, lc.File, lc.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, configPath
}

func newLabeler(lc config.LabelingConfig) (*labeler.Labeler, error) {
	loc := time.Local
	if strings.TrimSpace(lc.Location) != "" {
		l, err := time.LoadLocation(lc.Location)
		if err != nil {
			return nil, fmt.Errorf("load location %q: %w", lc.Location, err)
		}
		loc = l
	}
	return labeler.New(labeler.Config{
		HalfWidth:        lc.HalfWidth,
		EventClockOffset: lc.EventClockOffset,
		Location:         loc,
	}), nil
}

// newSharedSource builds the alert source used by scenarios without their
// own alerts file.
func newSharedSource(ac config.AlertsConfig, decoder *alerts.Decoder, classifier alerts.Classifier) (alerts.EventSource, error) {
	switch ac.Mode {
	case "file":
		logger.Infof("Alert source: file (%s)", ac.File.Path)
		return alerts.NewFileSource(ac.File.Path, classifier), nil
	case "redis":
		consumer, err := inputredis.NewConsumer(inputredis.Config{
			Addr:         ac.Redis.Addr,
			Password:     ac.Redis.Password,
			DB:           ac.Redis.DB,
			Key:          ac.Redis.Key,
			BlockTimeout: ac.Redis.BlockTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis consumer: %w", err)
		}
		logger.Infof("Alert source: redis (%s key=%s)", ac.Redis.Addr, ac.Redis.Key)
		return inputredis.NewAlertSource(consumer, decoder), nil
	case "nats":
		sub, err := inputnats.NewSubscriber(inputnats.Config{URL: ac.NATS.URL, Subject: ac.NATS.Subject}, decoder)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		logger.Infof("Alert source: nats (%s subject=%s)", ac.NATS.URL, ac.NATS.Subject)
		return sub, nil
	case "none":
		logger.Warnf("Alert source disabled; every record will be labeled benign")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown alert mode: %s", ac.Mode)
	}
}

func buildScenarios(c config.SDNLabelConfig, shared alerts.EventSource, classifier alerts.Classifier) []pipeline.Scenario {
	out := make([]pipeline.Scenario, 0, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		src := shared
		if sc.AlertsFile != "" {
			src = alerts.NewFileSource(sc.AlertsFile, classifier)
		}
		out = append(out, pipeline.Scenario{
			Name:     sc.Name,
			Warmup:   sc.Warmup,
			Duration: sc.Duration,
			Alerts:   src,
		})
	}
	return out
}

func buildOutputs(oc config.OutputConfig) (*pipeline.Outputs, error) {
	outputs := &pipeline.Outputs{}

	csvWriter, err := datasetcsv.NewWriter(oc.CSV.Path)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}
	outputs.Artifact = csvWriter
	logger.Infof("Dataset output: csv (%s)", oc.CSV.Path)

	if oc.ClickHouse.Enabled {
		w, err := datasetclickhouse.NewWriter(datasetclickhouse.Config{
			Addr:     oc.ClickHouse.Addr,
			Database: oc.ClickHouse.Database,
			Table:    oc.ClickHouse.Table,
			Username: oc.ClickHouse.Username,
			Password: oc.ClickHouse.Password,
			Timeout:  oc.ClickHouse.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create clickhouse writer: %w", err)
		}
		outputs.Datasets = append(outputs.Datasets, w)
	}

	summaryWriter, err := summaryjson.NewWriter(oc.Summary.Path)
	if err != nil {
		return nil, fmt.Errorf("create summary writer: %w", err)
	}
	outputs.Summaries = append(outputs.Summaries, summaryWriter)

	if oc.Webhook.URL != "" {
		w, err := summaryhttp.NewWriter(summaryhttp.Config{
			URL:     oc.Webhook.URL,
			Timeout: oc.Webhook.Timeout,
			Headers: oc.Webhook.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("create summary webhook: %w", err)
		}
		outputs.Summaries = append(outputs.Summaries, w)
		logger.Infof("Summary webhook: %s", oc.Webhook.URL)
	}

	alertWriter, err := alertjson.NewWriter(oc.Alerts.Path)
	if err != nil {
		return nil, fmt.Errorf("create alert writer: %w", err)
	}
	outputs.Alerts = alertWriter
	return outputs, nil
}

func trailFactory(rawDir string, runID func() string) pipeline.TrailFactory {
	if rawDir == "" {
		return nil
	}
	return func(scenario string) (pipeline.RecordWriter, error) {
		name := fmt.Sprintf("%s-%s.jsonl", runID(), sanitize(scenario))
		return recordjson.NewWriter(filepath.Join(rawDir, name))
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func runCollect(args []string) int {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}
	cfg, configPath := loadConfig(configArg)
	defer logger.Close()
	c := cfg.SDNLabel

	logger.Infof("sdnlabel starting")
	logger.Infof("Config loaded from: %s", configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := controller.NewClient(controller.Config{
		URL:         c.Controller.URL,
		Timeout:     c.Controller.PollTimeout,
		MaxFailures: c.Controller.Breaker.MaxFailures,
		Cooldown:    c.Controller.Breaker.Cooldown,
	})
	if err != nil {
		logger.Errorf("Failed to create controller client: %v", err)
		return 1
	}
	if _, err := client.Summary(ctx); err != nil {
		logger.Warnf("Controller health check failed: %v", err)
	}
	if c.Controller.WaitForSwitches.Enabled {
		if _, err := client.WaitForSwitches(ctx, c.Controller.WaitForSwitches.Attempts, c.Controller.WaitForSwitches.Interval); err != nil {
			logger.Errorf("Controller not ready: %v", err)
			return 1
		}
	}

	classifier, err := rules.NewClassifier(c.Alerts.Rules.Enabled, c.Alerts.Rules.Path)
	if err != nil {
		logger.Errorf("Failed to load Sigma rules from %s: %v", c.Alerts.Rules.Path, err)
		return 1
	}
	decoder := alerts.NewDecoder(classifier)
	shared, err := newSharedSource(c.Alerts, decoder, classifier)
	if err != nil {
		logger.Errorf("Failed to create alert source: %v", err)
		return 1
	}

	lab, err := newLabeler(c.Labeling)
	if err != nil {
		logger.Errorf("Invalid labeling config: %v", err)
		return 1
	}

	outputs, err := buildOutputs(c.Output)
	if err != nil {
		logger.Errorf("Failed to create outputs: %v", err)
		return 1
	}

	m := metrics.NewCollector()
	var pipe *pipeline.CollectionPipeline
	pipe = pipeline.NewCollectionPipeline(
		client.FetchFlows,
		buildScenarios(c, shared, classifier),
		lab,
		outputs,
		trailFactory(c.Output.RawDir, func() string { return pipe.RunID() }),
		m,
		pipeline.Config{
			Interval:    c.Collection.Interval,
			PollTimeout: c.Controller.PollTimeout,
			Duration:    c.Collection.Duration,
		},
	)
	defer func() {
		if err := pipe.Close(); err != nil {
			logger.Errorf("Error closing pipeline: %v", err)
		}
	}()

	if c.API.ListenAddr != "" {
		router := api.NewRouter(
			func() interface{} { return pipe.Status() },
			func(ctx context.Context) error {
				_, err := client.Summary(ctx)
				return err
			},
			m.Handler(),
		)
		srv := api.NewServer(c.API.ListenAddr, router)
		srv.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Errorf("API shutdown: %v", err)
			}
		}()
	}

	ds, err := pipe.Run(ctx)
	if err != nil {
		switch {
		case pipeline.IsLabelingError(err):
			logger.Errorf("Labeling aborted, no dataset written: %v", err)
		case pipeline.IsSchemaError(err):
			logger.Errorf("Dataset assembly aborted, no dataset written: %v", err)
		default:
			logger.Errorf("Collection failed: %v", err)
		}
		return 1
	}

	logger.Infof("Dataset %s: %d records (%d attack) -> %s",
		ds.Summary.RunID, ds.Summary.TotalRecords, ds.Summary.LabelCounts[models.LabelAttack], c.Output.CSV.Path)
	logger.Infof("sdnlabel stopped")
	return 0
}
