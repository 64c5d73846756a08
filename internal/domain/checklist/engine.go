package checklist

import (
	"fmt"
	"regexp"
	"strings"
)

// Engine evaluates proposals against a compiled rule set.
type Engine struct {
	rules RuleSet

	configPatterns     []compiledPattern
	dependencyPatterns []compiledPattern
	ansiblePatterns    []compiledPattern
	redFlagPatterns    map[string]*regexp.Regexp
	validLayers        []string
}

type compiledPattern struct {
	source string
	re     *regexp.Regexp
}

// NewEngine compiles a rule set. A pattern that fails to compile or a rule
// set without recognized layers is a construction error, fatal per the error
// taxonomy.
func NewEngine(rules RuleSet) (*Engine, error) {
	if len(rules.LayerContracts.ValidLayers) == 0 {
		return nil, fmt.Errorf("%w: layer_contracts.valid_layers is empty", ErrChecklistParse)
	}

	e := &Engine{
		rules:           rules,
		redFlagPatterns: make(map[string]*regexp.Regexp),
		validLayers:     rules.LayerContracts.ValidLayers,
	}

	var err error
	if e.configPatterns, err = compileAll(rules.Configuration.Patterns, true); err != nil {
		return nil, err
	}
	// Dependency lists are lowercased before matching, so these stay
	// case-sensitive.
	if e.dependencyPatterns, err = compileAll(rules.Dependencies.Patterns, false); err != nil {
		return nil, err
	}
	if e.ansiblePatterns, err = compileAll(rules.AnsibleFirst.Patterns, true); err != nil {
		return nil, err
	}

	for key, flag := range rules.RedFlags {
		if flag.Pattern == "" {
			continue
		}
		src := flag.Pattern
		if key == flagGodTools {
			src = "(?i)" + src
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("%w: red_flags.%s %q: %v", ErrBadPattern, key, flag.Pattern, err)
		}
		e.redFlagPatterns[key] = re
	}

	return e, nil
}

func compileAll(patterns []string, ignoreCase bool) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		src := p
		if ignoreCase {
			src = "(?i)" + p
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, p, err)
		}
		out = append(out, compiledPattern{source: p, re: re})
	}
	return out, nil
}

// Rules returns the rule set the engine was built from.
func (e *Engine) Rules() RuleSet {
	return e.rules
}

// Evaluate runs every check against the proposal and aggregates blocking
// issues and warnings. Pure: no I/O, no mutation.
func (e *Engine) Evaluate(p Proposal) Report {
	rep := Report{
		Results:  make(map[string]CheckResult),
		Issues:   []string{},
		Warnings: []string{},
	}

	config := e.checkConfiguration(p.ImplementationApproach)
	rep.Results[CheckConfiguration] = config
	rep.Issues = append(rep.Issues, config.Issues...)

	layer := e.checkLayerPlacement(p.Layer, p.Purpose)
	rep.Results[CheckLayerPlacement] = layer
	rep.Issues = append(rep.Issues, layer.Issues...)

	deps := e.checkDependencies(p.Dependencies)
	rep.Results[CheckDependencies] = deps
	rep.Issues = append(rep.Issues, deps.Issues...)

	if p.RequiresSystemStateChange {
		ansible := e.checkAnsibleFirst(p.ImplementationApproach)
		rep.Results[CheckAnsibleFirst] = ansible
		rep.Issues = append(rep.Issues, ansible.Issues...)
	}

	flags := e.detectRedFlags(p.ImplementationApproach, p.Dependencies)
	rep.Results[CheckRedFlags] = CheckResult{
		Pass:     len(flags.warnings) == 0,
		Issues:   flags.warnings,
		Category: "Red Flags",
	}
	rep.Warnings = append(rep.Warnings, flags.warnings...)
	rep.Flags = flags.found

	return rep
}

func (e *Engine) checkConfiguration(implementation string) CheckResult {
	issues := []string{}
	for _, p := range e.configPatterns {
		if p.re.MatchString(implementation) {
			issues = append(issues, fmt.Sprintf(
				"potential hardcoded configuration detected (%s): %s",
				p.source, e.rules.Configuration.Guidance))
		}
	}
	return CheckResult{Pass: len(issues) == 0, Issues: issues, Category: "Configuration vs Code"}
}

func (e *Engine) checkLayerPlacement(layer, purpose string) CheckResult {
	issues := []string{}
	lower := strings.ToLower(layer)

	known := false
	for _, v := range e.validLayers {
		if lower == v {
			known = true
			break
		}
	}
	if !known {
		issues = append(issues, fmt.Sprintf(
			"invalid layer %q, must be one of: %s", layer, strings.Join(e.validLayers, ", ")))
	}

	if lower == "platform" {
		purposeLower := strings.ToLower(purpose)
		for _, kw := range e.rules.LayerContracts.Platform.ForbiddenPurposeKeywords {
			if strings.Contains(purposeLower, kw) {
				issues = append(issues,
					"platform layer tool appears to have team-specific assumptions; platform tools must work for any team")
				break
			}
		}
	}

	return CheckResult{Pass: len(issues) == 0, Issues: issues, Category: "Layer Placement"}
}

func (e *Engine) checkDependencies(dependencies []string) CheckResult {
	issues := []string{}
	joined := strings.ToLower(strings.Join(dependencies, " "))
	for _, p := range e.dependencyPatterns {
		if p.re.MatchString(joined) {
			issues = append(issues, fmt.Sprintf(
				"dependency appears too concrete (%s): %s",
				p.source, e.rules.Dependencies.Guidance))
		}
	}
	return CheckResult{Pass: len(issues) == 0, Issues: issues, Category: "Dependencies"}
}

func (e *Engine) checkAnsibleFirst(implementation string) CheckResult {
	issues := []string{}
	for _, p := range e.ansiblePatterns {
		if p.re.MatchString(implementation) {
			issues = append(issues, fmt.Sprintf(
				"ansible-first violation (%s): %s",
				p.source, e.rules.AnsibleFirst.Guidance))
		}
	}
	return CheckResult{Pass: len(issues) == 0, Issues: issues, Category: "Ansible-First Principle"}
}

// Red flag keys with dedicated handling.
const (
	flagHardcodedInfra = "hardcoded_infrastructure"
	flagGodTools       = "god_tools"
	flagTightCoupling  = "tight_layer_coupling"
)

type redFlagHits struct {
	found    []string
	warnings []string
}

func (e *Engine) detectRedFlags(implementation string, dependencies []string) redFlagHits {
	hits := redFlagHits{found: []string{}, warnings: []string{}}

	if flag, ok := e.rules.RedFlags[flagHardcodedInfra]; ok {
		if re := e.redFlagPatterns[flagHardcodedInfra]; re != nil && re.MatchString(implementation) {
			hits.warnings = append(hits.warnings, fmt.Sprintf("%s: %s", flag.Name, flag.Problem))
			hits.found = append(hits.found, flagHardcodedInfra)
		}
	}

	if flag, ok := e.rules.RedFlags[flagGodTools]; ok {
		if re := e.redFlagPatterns[flagGodTools]; re != nil && re.MatchString(implementation) {
			hits.warnings = append(hits.warnings, fmt.Sprintf("%s: %s", flag.Name, flag.Problem))
			hits.found = append(hits.found, flagGodTools)
		}
	}

	if flag, ok := e.rules.RedFlags[flagTightCoupling]; ok {
		joined := strings.ToLower(strings.Join(dependencies, " "))
		for _, word := range flag.Words {
			if strings.Contains(joined, word) {
				hits.warnings = append(hits.warnings, fmt.Sprintf("%s: %s", flag.Name, flag.Problem))
				hits.found = append(hits.found, flagTightCoupling)
				break
			}
		}
	}

	return hits
}
