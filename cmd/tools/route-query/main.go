// cmd/tools/route-query/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"query-router/internal/app"
	"query-router/internal/common/config"
	"query-router/internal/common/validation"
	"query-router/internal/pipeline"
	"query-router/internal/pipeline/intent"
	"query-router/internal/pipeline/normalize"
	"query-router/internal/pipeline/rules"
	"query-router/internal/pipeline/snapshot"
	ruq "query-router/internal/workers/query/route-user-query"
	"query-router/pkg/registry"
)

type options struct {
	configDir    string
	serviceCfg   string
	registryPath string
	checkOnly    bool
	ruleSet      string
	classifier   string
	diagnostics  bool
	validate     bool
	pretty       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "route-query",
		Short: "Route queries through the pipeline without running the service",
		Long: `Route queries offline against a router configuration directory.

Examples:
  route-query route "show contract 123456"
  route-query route --diagnostics --pretty "parts AB123"
  cat queries.txt | route-query route --validate
  route-query check-config --config-dir ./configs/router --rule-set strict
  route-query registry --path configs/activity-registry.json`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "./configs/router", "Directory holding the keyword and spelling files")
	root.PersistentFlags().StringVar(&opts.ruleSet, "rule-set", rules.NameDefault, "Rule set: "+strings.Join(rules.Names(), ", "))

	route := &cobra.Command{
		Use:   "route [query...]",
		Short: "Route a query, or one query per stdin line when no arguments are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, args, opts)
		},
	}
	route.Flags().StringVar(&opts.classifier, "classifier", "", "Optional classifier model JSON")
	route.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "Attach diagnostics to each response")
	route.Flags().BoolVar(&opts.validate, "validate", false, "Fail if a response does not match the response schema")
	route.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")

	check := &cobra.Command{
		Use:   "check-config",
		Short: "Load the configuration directory and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckConfig(cmd, opts)
		},
	}

	reg := &cobra.Command{
		Use:   "registry",
		Short: "Write this service's activities into the activity registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistry(cmd, opts)
		},
	}
	reg.Flags().StringVar(&opts.registryPath, "path", "configs/activity-registry.json", "Path to the registry file")
	reg.Flags().StringVar(&opts.serviceCfg, "config", "", "Service config.yaml for worker timeout and retries")
	reg.Flags().BoolVar(&opts.checkOnly, "check", false, "Only validate the registry file")

	root.AddCommand(route, check, reg)
	return root
}

func loadSnapshot(ctx context.Context, opts *options) (*snapshot.Snapshot, error) {
	loader, err := app.NewLoader(config.RouterConfig{
		Source:          config.SourceFile,
		ConfigDir:       opts.configDir,
		RuleSet:         opts.ruleSet,
		StripDisallowed: true,
		ExtraAllowed:    normalize.DefaultOptions().ExtraAllowed,
	}, nil)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}

func runRoute(cmd *cobra.Command, args []string, opts *options) error {
	snap, err := loadSnapshot(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	classifier, err := app.LoadClassifier(opts.classifier)
	if err != nil {
		return err
	}
	p := pipeline.New(snapshot.NewStaticStore(snap), pipeline.WithClassifier(classifier))

	if len(args) > 0 {
		return routeOne(cmd.OutOrStdout(), p, strings.Join(args, " "), opts)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if err := routeOne(cmd.OutOrStdout(), p, scanner.Text(), opts); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func routeOne(w io.Writer, p *pipeline.Pipeline, query string, opts *options) error {
	resp := p.Run(query, opts.diagnostics)

	var (
		out []byte
		err error
	)
	if opts.pretty {
		out, err = json.MarshalIndent(resp, "", "  ")
	} else {
		out, err = json.Marshal(resp)
	}
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if opts.validate {
		result, err := validation.ValidateResponseJSON(out)
		if err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf("response for %q failed schema validation: %s", query, strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	_, err = fmt.Fprintln(w, string(out))
	return err
}

func runCheckConfig(cmd *cobra.Command, opts *options) error {
	snap, err := loadSnapshot(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "source:               %s\n", snap.Source)
	fmt.Fprintf(w, "rule set:             %s\n", snap.Rules.Name)
	fmt.Fprintf(w, "parts keywords:       %d\n", snap.Vocabulary.Parts.Len())
	fmt.Fprintf(w, "create keywords:      %d\n", snap.Vocabulary.Create.Len())
	fmt.Fprintf(w, "contract keywords:    %d\n", snap.Vocabulary.Contract.Len())
	fmt.Fprintf(w, "past-tense markers:   %d\n", snap.Vocabulary.PastTense.Len())
	fmt.Fprintf(w, "spelling corrections: %d\n", snap.Dictionary.Len())
	fmt.Fprintf(w, "routes:               %s\n", strings.Join(intent.RouteNames(), ", "))
	fmt.Fprintf(w, "extraction rules:     %s\n", strings.Join(snap.Extractor().RuleNames(), ", "))
	return nil
}

func runRegistry(cmd *cobra.Command, opts *options) error {
	reg, err := registry.LoadRegistry(opts.registryPath)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if opts.checkOnly {
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(w, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil
	}

	wcfg := config.GetWorkerConfig(&config.Config{}, ruq.TaskType)
	if opts.serviceCfg != "" {
		cfg, err := config.LoadFromFile(opts.serviceCfg)
		if err != nil {
			return err
		}
		wcfg = config.GetWorkerConfig(cfg, ruq.TaskType)
	}

	if !reg.Upsert(ruq.Activity(ruq.LoadConfig(wcfg), wcfg.MaxRetries), time.Now()) {
		fmt.Fprintf(w, "%s is up to date\n", opts.registryPath)
		return nil
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if err := registry.SaveRegistry(reg, opts.registryPath); err != nil {
		return err
	}
	fmt.Fprintf(w, "Updated %s with activity %s\n", opts.registryPath, ruq.TaskType)
	return nil
}
