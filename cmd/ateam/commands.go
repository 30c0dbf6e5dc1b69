package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JovanVeljanoski/ateam/agent"
	"github.com/JovanVeljanoski/ateam/internal/app"
	"github.com/JovanVeljanoski/ateam/internal/config"
	obs "github.com/JovanVeljanoski/ateam/observability"
	"github.com/JovanVeljanoski/ateam/observability/prom"
	srv "github.com/JovanVeljanoski/ateam/server/http"
)

func handleRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (JSON)")
	name := fs.String("agent", "", "Agent to run (defaults to default_agent)")
	dump := fs.Bool("state", false, "Print the agent state after the run")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	_ = fs.Parse(args)

	input, err := readInput(fs.Args(), os.Stdin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ag, err := pickAgent(a, *name)
	if err != nil {
		return err
	}
	res, err := ag.Run(ctx, input)
	if err != nil {
		return err
	}
	return printResult(os.Stdout, ag, res, *asJSON, *dump)
}

func handleServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (JSON)")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	enableCORS := fs.Bool("cors", false, "Send permissive CORS headers")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter := prom.New()
	obs.SetMetrics(exporter)

	a, err := setup(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	obs.MetricsImpl.SetActiveAgents(a.Team.Len())

	listen := a.Config.Addr
	if *addr != "" {
		listen = *addr
	}
	s := srv.NewServer(a.Team, srv.Config{
		Addr:       listen,
		EnableCORS: *enableCORS,
		Metrics:    prom.Handler(exporter),
	})
	return s.Run(ctx)
}

func handleAgents(args []string) error {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (JSON)")
	_ = fs.Parse(args)

	a, err := setup(context.Background(), *cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	for _, n := range a.Team.Names() {
		ag, _ := a.Team.Agent(n)
		marker := " "
		if n == a.Config.DefaultAgent {
			marker = "*"
		}
		fmt.Printf("%s %-20s %-28s %s\n", marker, n, ag.Model(), strings.Join(ag.Tools(), ","))
	}
	return nil
}

func setup(ctx context.Context, path string) (*app.App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger := stderrLogger(cfg.LogLevel, cfg.LogFormat)
	return app.New(ctx, cfg, logger)
}

func pickAgent(a *app.App, name string) (*agent.Agent, error) {
	if name == "" {
		name = a.Config.DefaultAgent
	}
	if name == "" {
		names := a.Team.Names()
		if len(names) == 0 {
			return nil, errors.New("no agents configured")
		}
		name = names[0]
	}
	ag, ok := a.Team.Agent(name)
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", name)
	}
	return ag, nil
}

// readInput joins positional args into the message, or reads stdin when
// there are none or the only arg is "-".
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return "", errors.New("a message is required")
	}
	return msg, nil
}

func printResult(w io.Writer, ag *agent.Agent, res *agent.Result, asJSON, dump bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(w, res.String())
	if dump {
		fmt.Fprintln(w, "\n--- state ---")
		return ag.State().Dump(context.Background(), w)
	}
	return nil
}
