package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"sdnlabel/config"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("sdnlabel.yml"); err == nil {
		return "sdnlabel.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "sdnlabel.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "sdnlabel.yml"
}

func applyDefaults(cfg *config.Config) {
	c := &cfg.SDNLabel

	if c.Controller.URL == "" {
		c.Controller.URL = "http://127.0.0.1:8080"
	}
	if c.Controller.PollTimeout <= 0 {
		c.Controller.PollTimeout = 3 * time.Second
	}
	if c.Controller.Breaker.MaxFailures == 0 {
		c.Controller.Breaker.MaxFailures = 5
	}
	if c.Controller.Breaker.Cooldown <= 0 {
		c.Controller.Breaker.Cooldown = 10 * time.Second
	}
	if c.Controller.WaitForSwitches.Attempts <= 0 {
		c.Controller.WaitForSwitches.Attempts = 30
	}
	if c.Controller.WaitForSwitches.Interval <= 0 {
		c.Controller.WaitForSwitches.Interval = 2 * time.Second
	}

	if c.Collection.Interval <= 0 {
		c.Collection.Interval = 5 * time.Second
	}
	if c.Collection.Duration <= 0 {
		c.Collection.Duration = 60 * time.Second
	}

	if c.Labeling.HalfWidth <= 0 {
		c.Labeling.HalfWidth = 10 * time.Second
	}

	if c.Alerts.Mode == "" {
		c.Alerts.Mode = "file"
	}
	if c.Alerts.File.Path == "" {
		c.Alerts.File.Path = "floodlight.log"
	}
	if c.Alerts.Redis.Addr == "" {
		c.Alerts.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Alerts.Redis.Key == "" {
		c.Alerts.Redis.Key = "sdn_alerts"
	}
	if c.Alerts.Redis.BlockTimeout == 0 {
		c.Alerts.Redis.BlockTimeout = time.Second
	}
	if c.Alerts.NATS.URL == "" {
		c.Alerts.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.Alerts.NATS.Subject == "" {
		c.Alerts.NATS.Subject = "sdn.alerts"
	}

	if len(c.Scenarios) == 0 {
		c.Scenarios = []config.ScenarioConfig{{Name: "default"}}
	}
	for i := range c.Scenarios {
		if c.Scenarios[i].Name == "" {
			c.Scenarios[i].Name = fmt.Sprintf("scenario%d", i+1)
		}
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.CSV.Path == "" {
		c.Output.CSV.Path = filepath.Join(c.Output.Dir, "dataset.csv")
	}
	if c.Output.Summary.Path == "" {
		c.Output.Summary.Path = filepath.Join(c.Output.Dir, "summary.json")
	}
	if c.Output.Alerts.Path == "" {
		c.Output.Alerts.Path = filepath.Join(c.Output.Dir, "alerts.jsonl")
	}
	if c.Output.RawDir == "" {
		c.Output.RawDir = filepath.Join(c.Output.Dir, "raw")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
