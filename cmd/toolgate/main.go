package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"toolgate/internal/domain/checklist"
	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/roadmap"
	"toolgate/internal/domain/session"
	"toolgate/internal/filestore"
	"toolgate/internal/sqlite"
	"toolgate/migrations"
)

var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "Toolgate CLI",
	Long: `toolgate gates MCP tool registration behind design validation. The CLI runs
the same validation, roadmap analysis and session note operations as the MCP
server, working directly against the server's data directories. Point it
elsewhere with --proposals-dir and friends or TOOLGATE_* environment variables.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TOOLGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("storage-backend", "file", "storage backend (file or sqlite)")
	rootCmd.PersistentFlags().String("sqlite-path", "toolgate.db", "sqlite database path")
	rootCmd.PersistentFlags().String("proposals-dir", "data/proposals", "proposal store directory")
	rootCmd.PersistentFlags().String("sessions-dir", "data/sessions", "session notes directory")
	rootCmd.PersistentFlags().String("checklist-path", "", "checklist rules file (empty uses the embedded rules)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("storage-backend", rootCmd.PersistentFlags().Lookup("storage-backend"))
	_ = viper.BindPFlag("sqlite-path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	_ = viper.BindPFlag("proposals-dir", rootCmd.PersistentFlags().Lookup("proposals-dir"))
	_ = viper.BindPFlag("sessions-dir", rootCmd.PersistentFlags().Lookup("sessions-dir"))
	_ = viper.BindPFlag("checklist-path", rootCmd.PersistentFlags().Lookup("checklist-path"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(proposalsCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(decideCmd())
	rootCmd.AddCommand(notesCmd())
}

func validateCmd() *cobra.Command {
	var in proposal.Input
	var deps []string
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a tool design against the checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				loaded, err := readProposalFile(file)
				if err != nil {
					return err
				}
				in = loaded
			} else {
				in.Dependencies = deps
			}
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				res, err := s.proposals.Validate(ctx, in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printValidation(res)
				if !res.Valid {
					return fmt.Errorf("design validation failed with %d blocking issue(s)", len(res.Issues))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.ToolName, "name", "", "tool name")
	cmd.Flags().StringVar(&in.Purpose, "purpose", "", "what the tool does")
	cmd.Flags().StringVar(&in.Layer, "layer", "", "target layer (platform, team, personal)")
	cmd.Flags().StringArrayVar(&deps, "dependency", []string{}, "declared dependency (repeatable)")
	cmd.Flags().BoolVar(&in.RequiresSystemStateChange, "state-change", false, "tool changes system state")
	cmd.Flags().StringVar(&in.ImplementationApproach, "implementation", "", "implementation approach")
	cmd.Flags().StringVar(&file, "file", "", "YAML proposal file (overrides the other flags)")
	return cmd
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a validation token against the stored proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				v, err := s.proposals.Verify(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(v)
				}
				fmt.Println(v.Message)
				if !v.Valid {
					return fmt.Errorf("token verification failed")
				}
				return nil
			})
		},
	}
	return cmd
}

func proposalsCmd() *cobra.Command {
	p := &cobra.Command{Use: "proposals", Short: "Inspect the proposal audit trail"}
	p.AddCommand(proposalsListCmd())
	p.AddCommand(proposalsShowCmd())
	return p
}

func proposalsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List validated proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				items, err := s.proposals.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Tool", "Layer", "Validated"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ProposalID, it.ToolName, it.Layer, it.Timestamp})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func proposalsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one proposal record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				rec, err := s.proposals.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(rec)
			})
		},
	}
	return cmd
}

func analyzeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a task graph and print the work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readTaskFile(file)
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				res := s.roadmap.Analyze(req)
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if !res.Success {
					return fmt.Errorf("%s", res.Message)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Level", "Tasks", "Duration", "Parallel"})
				for _, lvl := range res.WorkOrder {
					tw.AppendRow(table.Row{lvl.Level, strings.Join(lvl.Tasks, ", "), lvl.Duration, lvl.CanParallelize})
				}
				tw.Render()
				fmt.Printf("Critical path: %s (duration %.1f)\n", strings.Join(res.CriticalPath, " -> "), res.CriticalPathDuration)
				fmt.Printf("Analysis token: %s\n", res.Token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML task file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func decideCmd() *cobra.Command {
	var file, token, rationale string
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Recommend the next task from a prior analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readTaskFile(file)
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				res := s.roadmap.Decide(roadmap.DecideRequest{
					Tasks:         req.Tasks,
					AnalysisToken: token,
					Rationale:     rationale,
				})
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if !res.Success {
					return fmt.Errorf("%s", res.Message)
				}
				fmt.Println(res.Message)
				if res.Reason != "" {
					fmt.Printf("Reason: %s\n", res.Reason)
				}
				if res.NextAction != "" {
					fmt.Printf("Next: %s\n", res.NextAction)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML task file")
	cmd.Flags().StringVar(&token, "token", "", "analysis token from a prior analyze")
	cmd.Flags().StringVar(&rationale, "rationale", "", "why this decision is being made")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func notesCmd() *cobra.Command {
	n := &cobra.Command{Use: "notes", Short: "Session notes"}
	n.AddCommand(notesAddCmd())
	n.AddCommand(notesListCmd())
	return n
}

func notesAddCmd() *cobra.Command {
	var req session.CreateRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a note to the session journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				res, err := s.sessions.Create(ctx, req)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Println(res.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Content, "content", "", "note content")
	cmd.Flags().StringVar(&req.Section, "section", "", "target section (Goals, Progress, Decisions, Issues, Next Steps)")
	cmd.Flags().StringVar(&req.SessionName, "session", "", "session file name (defaults to today)")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func notesListCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List session files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *cliServices) error {
				res, err := s.sessions.List(ctx, days)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"File", "Modified", "Age (days)", "Size"})
				for _, f := range res.Sessions {
					tw.AppendRow(table.Row{f.Name, f.LastModified, f.AgeDays, f.Size})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "look-back window in days")
	return cmd
}

// --- helpers ---

type cliServices struct {
	proposals *proposal.Service
	roadmap   *roadmap.Service
	sessions  *session.Service
}

func withServices(ctx context.Context, fn func(context.Context, *cliServices) error) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	rules, err := loadRules(viper.GetString("checklist-path"))
	if err != nil {
		return fmt.Errorf("load checklist rules: %w", err)
	}
	engine, err := checklist.NewEngine(rules)
	if err != nil {
		return fmt.Errorf("compile checklist rules: %w", err)
	}

	var store proposal.Store
	if viper.GetString("storage-backend") == "sqlite" {
		db, err := sqlite.New(viper.GetString("sqlite-path"))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := applyMigrations(db); err != nil {
			return err
		}
		store = sqlite.NewProposalStore(db)
	} else {
		store = filestore.NewProposalStore(viper.GetString("proposals-dir"))
	}

	return fn(ctx, &cliServices{
		proposals: proposal.NewService(engine, store, logger),
		roadmap:   roadmap.NewService(logger),
		sessions:  session.NewService(viper.GetString("sessions-dir"), logger),
	})
}

func loadRules(path string) (checklist.RuleSet, error) {
	if path == "" {
		return checklist.LoadBuiltin()
	}
	return checklist.LoadFile(path)
}

func applyMigrations(db *sqlite.DB) error {
	data, err := migrations.FS.ReadFile("001_initial_schema.up.sql")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func printValidation(res *proposal.ValidationResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Check", "Result", "Notes"})
	names := make([]string, 0, len(res.ChecklistResults))
	for name := range res.ChecklistResults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cr := res.ChecklistResults[name]
		status := "pass"
		if !cr.Pass {
			status = "fail"
		}
		tw.AppendRow(table.Row{name, status, strings.Join(cr.Issues, "; ")})
	}
	tw.Render()
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if res.Valid {
		fmt.Printf("Proposal %s validated.\n", res.ProposalID)
		fmt.Printf("Validation token: %s\n", res.Token)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type proposalFile struct {
	ToolName                  string   `yaml:"tool_name"`
	Purpose                   string   `yaml:"purpose"`
	Layer                     string   `yaml:"layer"`
	Dependencies              []string `yaml:"dependencies"`
	RequiresSystemStateChange bool     `yaml:"requires_system_state_change"`
	ImplementationApproach    string   `yaml:"implementation_approach"`
}

func readProposalFile(path string) (proposal.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return proposal.Input{}, err
	}
	var doc proposalFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return proposal.Input{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return proposal.Input{
		ToolName:                  doc.ToolName,
		Purpose:                   doc.Purpose,
		Layer:                     doc.Layer,
		Dependencies:              doc.Dependencies,
		RequiresSystemStateChange: doc.RequiresSystemStateChange,
		ImplementationApproach:    doc.ImplementationApproach,
	}, nil
}

type taskFile struct {
	Goal         string     `yaml:"goal"`
	CurrentState []string   `yaml:"current_state"`
	Tasks        []taskSpec `yaml:"tasks"`
}

type taskSpec struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Duration  *float64 `yaml:"duration"`
	DependsOn []string `yaml:"depends_on"`
	Completed bool     `yaml:"completed"`
}

func readTaskFile(path string) (roadmap.AnalyzeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return roadmap.AnalyzeRequest{}, err
	}
	var doc taskFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return roadmap.AnalyzeRequest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	req := roadmap.AnalyzeRequest{Goal: doc.Goal, CurrentState: doc.CurrentState}
	for _, t := range doc.Tasks {
		req.Tasks = append(req.Tasks, roadmap.Task{
			ID:        t.ID,
			Name:      t.Name,
			Duration:  t.Duration,
			DependsOn: t.DependsOn,
			Completed: t.Completed,
		})
	}
	return req, nil
}
