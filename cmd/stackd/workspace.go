package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/clouddeck/stackd/internal/config"
	"github.com/clouddeck/stackd/internal/history"
	"github.com/clouddeck/stackd/internal/log"
	"github.com/clouddeck/stackd/internal/stack"
	"github.com/clouddeck/stackd/internal/supervisor"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func runWorkspaceNoun(args []string) int {
	if len(args) < 1 {
		printWorkspaceNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printWorkspaceNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		return runWorkspaceList(actionArgs)
	case "info":
		return runWorkspaceInfo(actionArgs)
	case "save":
		if hasHelpFlag(actionArgs) {
			printWorkspaceSaveHelp()
			return 0
		}
		return runWorkspaceSave(actionArgs)
	case "destroy":
		return runWorkspaceDestroy(actionArgs)
	case "resources":
		return runWorkspaceResources(actionArgs)
	case "outputs":
		return runWorkspaceOutputs(actionArgs)
	case "events":
		return runWorkspaceEvents(actionArgs)
	case "template":
		return runWorkspaceTemplate(actionArgs)
	case "history":
		return runWorkspaceHistory(actionArgs)
	case "help":
		printWorkspaceNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown workspace action: %s\n", action)
		return 1
	}
}

func printWorkspaceNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: stackd workspace <action> [flags]")
	fmt.Fprintln(w, "Actions: list, info, save, destroy, resources, outputs, events, template, history")
}

func printWorkspaceSaveHelp() {
	fmt.Println("Usage: stackd workspace save <name> --template FILE [--params FILE] [--config PATH]")
	fmt.Println("Create or update a workspace from a JSON template, then wait for the run to finish.")
}

// runtimeEnv bundles the pieces CLI actions need against one config.
type runtimeEnv struct {
	cfg   *config.Config
	mgr   *stack.Manager
	sup   *supervisor.Supervisor
	store *history.Store
}

func (e *runtimeEnv) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func buildEnv(configPath string) (*runtimeEnv, error) {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log.Setup(cfg.Service.LogLevel)

	env := &runtimeEnv{cfg: cfg, sup: supervisor.New()}

	opts := []stack.Option{
		stack.WithBinary(cfg.Workspaces.Binary),
		stack.WithSupervisor(env.sup),
	}
	if cfg.History.Path != "" {
		store, err := history.Open(context.Background(), cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		env.store = store
		opts = append(opts, stack.WithHistory(store))
	}

	mgr, err := stack.NewManager(cfg.Workspaces.ContainerDir, opts...)
	if err != nil {
		env.close()
		return nil, err
	}
	env.mgr = mgr
	return env, nil
}

func runWorkspaceList(args []string) int {
	fs := newFlagSet("list")
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	names, err := env.mgr.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(names)
		return 0
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return 0
}

func runWorkspaceInfo(args []string) int {
	fs := newFlagSet("info")
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: stackd workspace info <name> [--json]")
		return 1
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	info, err := env.mgr.Info(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(info)
		return 0
	}
	fmt.Printf("Name:     %s\n", info.Name)
	fmt.Printf("Dir:      %s\n", info.Dir)
	fmt.Printf("State:    %s (%s)\n", info.State, info.Status)
	fmt.Printf("Created:  %s\n", formatMillis(info.CreatedAt))
	fmt.Printf("Updated:  %s\n", formatMillis(info.UpdatedAt))
	if len(info.Outputs) > 0 {
		fmt.Println("Outputs:")
		for k, v := range info.Outputs {
			fmt.Printf("  %s = %v\n", k, v)
		}
	}
	return 0
}

func runWorkspaceSave(args []string) int {
	fs := newFlagSet("save")
	configPath := fs.String("config", "", "Path to configuration file")
	templateFile := fs.String("template", "", "Path to the JSON template file")
	paramsFile := fs.String("params", "", "Path to a JSON parameters file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 || *templateFile == "" {
		printWorkspaceSaveHelp()
		return 1
	}
	name := fs.Arg(0)

	template, err := readJSONFile(*templateFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Template error: %v\n", err)
		return 1
	}

	params := any(map[string]any{})
	if *paramsFile != "" {
		params, err = readJSONFile(*paramsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Params error: %v\n", err)
			return 1
		}
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	if err := env.mgr.Save(name, template, params); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Provisioning %s...\n", name)
	env.sup.Shutdown()

	info, err := env.mgr.Info(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Workspace %s: %s\n", name, info.State)
	if info.State.Phase() != "complete" {
		return 1
	}
	return 0
}

func runWorkspaceDestroy(args []string) int {
	fs := newFlagSet("destroy")
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: stackd workspace destroy <name>")
		return 1
	}
	name := fs.Arg(0)

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	if err := env.mgr.Destroy(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Destroying %s...\n", name)
	env.sup.Shutdown()

	s, err := env.mgr.Stack(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if s.Exists() {
		info, infoErr := env.mgr.Info(name)
		if infoErr == nil {
			fmt.Fprintf(os.Stderr, "Destroy failed: workspace %s is %s\n", name, info.State)
		} else {
			fmt.Fprintf(os.Stderr, "Destroy failed: workspace %s still exists\n", name)
		}
		return 1
	}
	fmt.Printf("Workspace %s destroyed\n", name)
	return 0
}

func runWorkspaceResources(args []string) int {
	fs := newFlagSet("resources")
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: stackd workspace resources <name> [--json]")
		return 1
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	resources, err := env.mgr.Resources(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(resources)
		return 0
	}
	for _, r := range resources {
		fmt.Printf("%s.%s\t%s\n", r.Type, r.Name, r.PhysicalID)
	}
	return 0
}

func runWorkspaceOutputs(args []string) int {
	fs := newFlagSet("outputs")
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: stackd workspace outputs <name> [--json]")
		return 1
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	outputs, err := env.mgr.Outputs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(outputs)
		return 0
	}
	for k, v := range outputs {
		fmt.Printf("%s = %v\n", k, v)
	}
	return 0
}

func runWorkspaceEvents(args []string) int {
	fs := newFlagSet("events")
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: stackd workspace events <name> [--json]")
		return 1
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	evs, err := env.mgr.Events(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(evs)
		return 0
	}
	for _, e := range evs {
		name := e.ResourceName
		if e.ResourceType != "" {
			name = e.ResourceType + "." + e.ResourceName
		}
		fmt.Printf("%s  %-40s %s\n", formatMillis(e.Timestamp), name, e.ResourceStatus)
	}
	return 0
}

func runWorkspaceTemplate(args []string) int {
	fs := newFlagSet("template")
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: stackd workspace template <name>")
		return 1
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	tmpl, err := env.mgr.Template(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(tmpl)
	return 0
}

func runWorkspaceHistory(args []string) int {
	fs := newFlagSet("history")
	configPath := fs.String("config", "", "Path to configuration file")
	limit := fs.Int("limit", 20, "Maximum records to show")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: stackd workspace history [name] [--limit N] [--json]")
		return 1
	}

	env, err := buildEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	if env.store == nil {
		fmt.Fprintln(os.Stderr, "Error: history.path is not configured")
		return 1
	}

	workspace := ""
	if fs.NArg() == 1 {
		workspace = fs.Arg(0)
	}

	records, err := env.store.List(context.Background(), workspace, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(records)
		return 0
	}
	for _, rec := range records {
		completed := "-"
		if rec.CompletedAt != nil {
			completed = rec.CompletedAt.Local().Format(time.RFC3339)
		}
		fmt.Printf("%s  %-20s %-8s %-18s %s\n",
			rec.CreatedAt.Local().Format(time.RFC3339), rec.Workspace, rec.Op, rec.State, completed)
	}
	return 0
}

func readJSONFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format(time.RFC3339)
}
