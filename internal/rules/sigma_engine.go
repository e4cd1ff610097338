package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"sdnlabel/pkg/models"
)

// Rules declare their attack kind with a tag such as "sdn.host_hijack".
const kindTagPrefix = "sdn."

// SigmaLoadStats counts rule files by outcome.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
	SkippedUntagged   int
}

var (
	errOtherDatasource = errors.New("logsource is not floodlight/topoguard")
	errUntagged        = errors.New("no sdn.<kind> tag")
)

// unsupportedError marks a rule the single-event evaluator cannot run.
type unsupportedError struct{ reason string }

func (e unsupportedError) Error() string { return e.reason }

func (s *SigmaLoadStats) record(err error) {
	var unsupported unsupportedError
	switch {
	case err == nil:
		s.Loaded++
	case errors.Is(err, errOtherDatasource):
		s.SkippedDatasource++
	case errors.Is(err, errUntagged):
		s.SkippedUntagged++
	case errors.As(err, &unsupported):
		s.SkippedComplex++
	default:
		s.SkippedInvalid++
	}
}

type topoRule struct {
	title string
	kind  models.AttackKind
	eval  *sigmaevaluator.RuleEvaluator
}

// SigmaClassifier maps TopoGuard alerts to attack kinds with Sigma rules.
// Rules run in path order and the first match decides.
type SigmaClassifier struct {
	rules []topoRule
}

// NewSigmaClassifier compiles every .yml/.yaml rule under path, which may be
// a single file. Rules that do not apply to controller alerts are skipped and
// counted in the returned stats.
func NewSigmaClassifier(path string) (*SigmaClassifier, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	files, err := ruleFiles(path)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalFiles = len(files)

	c := &SigmaClassifier{}
	for _, file := range files {
		r, err := compileRuleFile(file)
		stats.record(err)
		if err != nil {
			log.Debugf("skip %s: %v", filepath.Base(file), err)
			continue
		}
		c.rules = append(c.rules, r)
	}
	return c, stats, nil
}

func ruleFiles(path string) ([]string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rule path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat rule path: %w", err)
	}
	if !info.IsDir() {
		if !hasYAMLExt(root) {
			return nil, fmt.Errorf("rule file must end with .yml or .yaml: %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && hasYAMLExt(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk rule directory: %w", err)
	}
	return files, nil
}

func compileRuleFile(path string) (topoRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return topoRule{}, err
	}
	rule, err := sigma.ParseRule(raw)
	if err != nil {
		return topoRule{}, fmt.Errorf("parse: %w", err)
	}
	if !appliesToController(rule) {
		return topoRule{}, errOtherDatasource
	}
	if err := checkSingleEvent(rule); err != nil {
		return topoRule{}, err
	}
	kind, ok := tagKind(rule.Tags)
	if !ok {
		return topoRule{}, errUntagged
	}
	return topoRule{title: rule.Title, kind: kind, eval: sigmaevaluator.ForRule(rule)}, nil
}

// Classify returns the kind of the first matching rule, or unknown.
func (c *SigmaClassifier) Classify(event models.AlertEvent) models.AttackKind {
	if c.Len() == 0 {
		return models.KindUnknown
	}
	fields := alertFields(event)
	ctx := context.Background()
	for _, r := range c.rules {
		res, err := r.eval.Matches(ctx, fields)
		if err != nil || !res.Match {
			continue
		}
		log.Debugf("rule %q matched: %s", r.title, r.kind)
		return r.kind
	}
	return models.KindUnknown
}

// Len returns the number of compiled rules.
func (c *SigmaClassifier) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

func hasYAMLExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// An empty product or service matches anything.
func appliesToController(rule sigma.Rule) bool {
	product := strings.ToLower(strings.TrimSpace(rule.Logsource.Product))
	service := strings.ToLower(strings.TrimSpace(rule.Logsource.Service))
	return (product == "" || product == "floodlight") && (service == "" || service == "topoguard")
}

func checkSingleEvent(rule sigma.Rule) error {
	d := rule.Detection
	if d.Timeframe > 0 {
		return unsupportedError{"timeframe"}
	}
	for _, cond := range d.Conditions {
		if cond.Aggregation != nil {
			return unsupportedError{"aggregation"}
		}
		if !plainExpr(cond.Search) {
			return unsupportedError{"condition expression"}
		}
	}
	for name, search := range d.Searches {
		if len(search.Keywords) > 0 {
			return unsupportedError{"keyword search " + name}
		}
		if len(search.EventMatchers) == 0 {
			return unsupportedError{"empty search " + name}
		}
	}
	return nil
}

// plainExpr accepts boolean combinations of named searches only.
func plainExpr(expr sigma.SearchExpr) bool {
	var children []sigma.SearchExpr
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.Not:
		return plainExpr(e.Expr)
	case sigma.And:
		children = e
	case sigma.Or:
		children = e
	default:
		return false
	}
	for _, child := range children {
		if !plainExpr(child) {
			return false
		}
	}
	return true
}

// alertFields exposes an alert under the field names rule authors use for
// Floodlight log records.
func alertFields(event models.AlertEvent) map[string]interface{} {
	return map[string]interface{}{
		"message":  event.RawMessage,
		"Message":  event.RawMessage,
		"source":   event.Source,
		"logger":   event.Source,
		"severity": event.Severity,
		"level":    event.Severity,
	}
}

func tagKind(tags []string) (models.AttackKind, bool) {
	for _, raw := range tags {
		name, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(raw)), kindTagPrefix)
		if !ok {
			continue
		}
		if kind := models.ParseAttackKind(name); kind != models.KindUnknown {
			return kind, true
		}
	}
	return "", false
}
