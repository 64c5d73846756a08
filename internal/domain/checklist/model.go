package checklist

// RuleSet is the parsed design checklist document. Loaded once at startup
// and immutable for the process lifetime.
type RuleSet struct {
	Version        int                `yaml:"version"`
	Configuration  PatternGroup       `yaml:"configuration"`
	LayerContracts LayerContracts     `yaml:"layer_contracts"`
	Dependencies   PatternGroup       `yaml:"dependencies"`
	AnsibleFirst   PatternGroup       `yaml:"ansible_first"`
	RedFlags       map[string]RedFlag `yaml:"red_flags"`
}

// PatternGroup is a named group of regular expressions with shared guidance
// text used when a pattern matches.
type PatternGroup struct {
	Patterns []string `yaml:"patterns"`
	Guidance string   `yaml:"guidance"`
}

// LayerContracts describes the recognized layers and their placement rules.
type LayerContracts struct {
	ValidLayers []string      `yaml:"valid_layers"`
	Platform    LayerContract `yaml:"platform"`
	Team        LayerContract `yaml:"team"`
	Personal    LayerContract `yaml:"personal"`
}

// LayerContract holds the placement rules for a single layer.
type LayerContract struct {
	Scope                    string   `yaml:"scope"`
	ForbiddenPurposeKeywords []string `yaml:"forbidden_purpose_keywords"`
}

// RedFlag is a non-blocking anti-pattern detector. Pattern-based flags match
// the implementation text; word-based flags match the joined dependency list.
type RedFlag struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"`
	Words   []string `yaml:"words"`
	Problem string   `yaml:"problem"`
}

// Proposal carries the free-text fields of a tool proposal that the engine
// evaluates. The engine never persists or mutates it.
type Proposal struct {
	ToolName                  string
	Purpose                   string
	Layer                     string
	Dependencies              []string
	RequiresSystemStateChange bool
	ImplementationApproach    string
}

// CheckResult is the outcome of a single checklist check.
type CheckResult struct {
	Pass     bool     `json:"pass"`
	Issues   []string `json:"issues"`
	Category string   `json:"category"`
}

// Report aggregates all check results for one proposal. Issues block
// validation; Warnings never do.
type Report struct {
	Results  map[string]CheckResult `json:"checklist_results"`
	Issues   []string               `json:"issues"`
	Warnings []string               `json:"warnings"`
	Flags    []string               `json:"flags,omitempty"`
}

// Check names as they appear in Report.Results and persisted records.
const (
	CheckConfiguration  = "configuration"
	CheckLayerPlacement = "layer_placement"
	CheckDependencies   = "dependencies"
	CheckAnsibleFirst   = "ansible_first"
	CheckRedFlags       = "red_flags"
)
