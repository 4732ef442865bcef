package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/infrastructure"
	"todoagent/internal/infrastructure/persistence"
	"todoagent/internal/tools"
	"todoagent/pkg/auth"
	"todoagent/pkg/config"
)

const (
	dataDir           = "data"
	defaultSeedFile   = "seed_todos.json"
	legacySessionFile = "session_default.json"
)

var errAborted = errors.New("aborted")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: todoctl <command> [flags]")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  reset [-yes]                      empty the to-do list and the default session")
	fmt.Fprintln(w, "  seed [file]                       overwrite the to-do list from a JSON or YAML file")
	fmt.Fprintln(w, "  list [-project p] [-id n]         print to-do items")
	fmt.Fprintln(w, "  add -name n [-description d] [-project p]")
	fmt.Fprintln(w, "  update -id n [-name n] [-description d] [-project p] [-status s]")
	fmt.Fprintln(w, "  delete -id n")
	fmt.Fprintln(w, "  token -subject s [-ttl 24h]       sign an API bearer token with JWT_SECRET")
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}

	return dispatch(ctx, cfg, args, stdin, stdout, stderr)
}

func dispatch(ctx context.Context, cfg *config.AppConfig, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := &command{cfg: cfg, stdin: stdin, stdout: stdout}

	var handler func(context.Context, []string) error

	switch args[0] {
	case "reset":
		handler = cmd.reset
	case "seed":
		handler = cmd.seed
	case "list":
		handler = cmd.list
	case "add":
		handler = cmd.add
	case "update":
		handler = cmd.update
	case "delete":
		handler = cmd.delete
	case "token":
		handler = cmd.token
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}

	defer cmd.close()

	if err := handler(ctx, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		if errors.Is(err, errAborted) {
			fmt.Fprintln(stdout, "Aborting.")
			return 1
		}

		fmt.Fprintf(stderr, "%s failed: %v\n", args[0], err)
		return 1
	}

	return 0
}

type command struct {
	cfg       *config.AppConfig
	stdin     io.Reader
	stdout    io.Writer
	container *infrastructure.Container
}

func (c *command) open(ctx context.Context) (*infrastructure.Container, error) {
	if c.container == nil {
		container, err := infrastructure.NewContainer(ctx, c.cfg, config.NewNopLogger(), nil)
		if err != nil {
			return nil, err
		}
		c.container = container
	}

	return c.container, nil
}

func (c *command) close() {
	if c.container != nil {
		c.container.Close()
	}
}

func (c *command) replacer(ctx context.Context) (repositories.TodoReplacer, error) {
	container, err := c.open(ctx)
	if err != nil {
		return nil, err
	}

	replacer, ok := container.TodoRepo.(repositories.TodoReplacer)
	if !ok {
		return nil, fmt.Errorf("storage driver %q cannot be overwritten", c.cfg.Store.Driver)
	}

	return replacer, nil
}

func (c *command) reset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	fs.BoolVar(yes, "y", false, "shorthand for -yes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*yes && !c.confirm("Are you sure you want to delete all to-dos and session history?") {
		return errAborted
	}

	replacer, err := c.replacer(ctx)
	if err != nil {
		return err
	}

	if err := replacer.ReplaceAll(ctx, nil); err != nil {
		return err
	}

	if err := c.container.SessionUseCase.ResetSession(ctx, entities.DefaultSessionID); err != nil {
		return err
	}

	if err := clearLegacySession(c.cfg.Sess.Path); err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, "To-do list and session history have been reset.")
	return nil
}

// clearLegacySession empties the single-file history kept next to the
// session directory by older installs. A missing file is left missing.
func clearLegacySession(sessionDir string) error {
	path := filepath.Join(filepath.Dir(sessionDir), legacySessionFile)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := os.WriteFile(path, []byte(`{"history": []}`+"\n"), 0o644); err != nil {
		return fmt.Errorf("reset %s: %w", path, err)
	}

	return nil
}

func (c *command) confirm(question string) bool {
	fmt.Fprintf(c.stdout, "%s [y/N]: ", question)

	answer, _ := bufio.NewReader(c.stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}

func (c *command) seed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := seedPath(fs.Arg(0))

	items, err := readSeedFile(path)
	if err != nil {
		return err
	}

	replacer, err := c.replacer(ctx)
	if err != nil {
		return err
	}

	if err := replacer.ReplaceAll(ctx, items); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "To-do list has been seeded from '%s'.\n", path)
	return nil
}

// seedPath resolves a bare file name under data/.
func seedPath(arg string) string {
	if arg == "" {
		arg = defaultSeedFile
	}

	if filepath.Dir(arg) == "." && !strings.HasPrefix(arg, ".") {
		return filepath.Join(dataDir, arg)
	}

	return arg
}

func readSeedFile(path string) ([]entities.TodoItem, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("seed file not found at '%s'", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var items []entities.TodoItem
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if items == nil {
			items = []entities.TodoItem{}
		}

		if err := persistence.ValidateTodoItems(items); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		return items, nil
	}

	items, err := persistence.DecodeTodoItems(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return items, nil
}

func (c *command) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	project := fs.String("project", "", "only items of this project")
	id := fs.Int("id", 0, "only the item with this id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	toolArgs := map[string]any{}
	if *id != 0 {
		toolArgs["item_id"] = *id
	}
	if *project != "" {
		toolArgs["project"] = *project
	}

	return c.runTool(ctx, tools.ReadTodosTool, toolArgs)
}

func (c *command) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	toolArgs := map[string]any{}
	stringFlags(fs, toolArgs, "name", "description", "project")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return c.runTool(ctx, tools.CreateTodoTool, toolArgs)
}

func (c *command) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	id := fs.Int("id", 0, "id of the item to update")
	toolArgs := map[string]any{}
	stringFlags(fs, toolArgs, "name", "description", "project", "status")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id == 0 {
		return errors.New("-id is required")
	}
	toolArgs["item_id"] = *id

	return c.runTool(ctx, tools.UpdateTodoTool, toolArgs)
}

func (c *command) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.Int("id", 0, "id of the item to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id == 0 {
		return errors.New("-id is required")
	}

	return c.runTool(ctx, tools.DeleteTodoTool, map[string]any{"item_id": *id})
}

func (c *command) token(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "", "token subject, e.g. the agent name")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *subject == "" {
		return errors.New("-subject is required")
	}

	if c.cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	token, err := (&auth.JWT{Secret: c.cfg.Auth.JWTSecret}).CreateToken(*subject, *ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, token)
	return nil
}

func (c *command) runTool(ctx context.Context, name string, args map[string]any) error {
	container, err := c.open(ctx)
	if err != nil {
		return err
	}

	output, err := container.Tools.Execute(ctx, name, args)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, output)
	return nil
}

// stringFlags registers one flag per name that is copied into args only
// when given on the command line, so "-description=" can clear a field.
func stringFlags(fs *flag.FlagSet, args map[string]any, names ...string) {
	for _, name := range names {
		name := name // per-iteration copy; go.mod targets go 1.21 loop semantics
		fs.Func(name, "new "+name, func(value string) error {
			args[name] = value
			return nil
		})
	}
}
