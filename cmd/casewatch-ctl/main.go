// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// casewatch-ctl is a command-line tool for a running casewatch instance.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/wingedpig/casewatch/cmd/casewatch-ctl/output"
	"github.com/wingedpig/casewatch/pkg/client"
)

var version = "0.9"

// cli holds the state shared by every command.
type cli struct {
	api        *client.Client
	out        io.Writer
	in         io.Reader
	jsonOutput bool
}

func main() {
	apiURL := "http://localhost:1040"
	if env := os.Getenv("CASEWATCH_API"); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	c := &cli{api: client.New(apiURL), out: os.Stdout, in: os.Stdin}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func (c *cli) run(ctx context.Context, argv []string) error {
	// Global flags may appear anywhere
	var args []string
	for _, arg := range argv {
		if arg == "-json" {
			c.jsonOutput = true
		} else {
			args = append(args, arg)
		}
	}

	if len(args) < 1 {
		c.printUsage()
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		return c.cmdStatus(ctx)
	case "list", "ls":
		return c.cmdList(ctx, rest)
	case "show":
		return c.cmdShow(ctx, rest)
	case "me":
		return c.cmdMe(ctx)
	case "create":
		return c.cmdCreate(ctx, rest)
	case "checkin":
		return c.cmdCaseAction(ctx, rest, "checkin")
	case "claim":
		return c.cmdClaim(ctx, rest)
	case "delete", "restore", "purge":
		return c.cmdCaseAction(ctx, rest, cmd)
	case "bin":
		return c.cmdBin(ctx)
	case "predict":
		return c.cmdPredict(ctx, rest)
	case "stats":
		return c.cmdStats(ctx)
	case "summary":
		return c.cmdSummary(ctx, rest)
	case "maintenance":
		return c.cmdMaintenance(ctx, rest)
	case "verify":
		return c.cmdVerify(ctx)
	case "purge-all":
		return c.cmdPurgeAll(ctx, rest)
	case "audit":
		return c.cmdAudit(ctx)
	case "events":
		return c.cmdEvents(ctx, rest)
	case "notify":
		return c.cmdNotify(ctx, rest)
	case "version", "-v", "--version":
		fmt.Fprintf(c.out, "casewatch-ctl %s\n", version)
		return nil
	case "help", "-h", "--help":
		c.printUsage()
		return nil
	default:
		c.printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (c *cli) printUsage() {
	fmt.Fprintln(c.out, `casewatch-ctl - Control a running casewatch instance

Usage:
  casewatch-ctl [-json] <command> [arguments]

Global Flags:
  -json          Output in JSON format

Environment:
  CASEWATCH_API  Base URL of the casewatch API (default: http://localhost:1040)

Commands:
  status                     Show server health and sync state
  list [options]             List cases (active set by default)
    -ghosts                  List ghost cases instead
    -jurisdiction <name>     Filter by jurisdiction
    -category <category>     Filter by category
    -status <status>         Filter by status
    -month N -year N         Filter by submission month/year
    -q <text>                Search names and jurisdictions
    -format <fmt>            table, json, jsonl, csv or template
    -template <tmpl>         Go template for -format template
  show <id>                  Show one case
  me                         Show your own case
  create <name> [options]    Create a case
    -contact <contact>       Owner contact (default: none)
    -category <category>     Category (default: other)
    -jurisdiction <name>     Jurisdiction
  checkin <id>               Mark a case as still current
  claim <id> <contact>       Claim an unowned case
  delete <id>                Move a case to the bin
  restore <id>               Take a case out of the bin
  purge <id>                 Delete a case permanently
  bin                        List cases in the bin
  predict <id> [-locale l]   Predict the decision date of a case

  stats                      Show dashboard statistics
  summary [-locale l]        Describe the collection in prose

  maintenance [on|off]       Show or set maintenance mode
  verify                     Check the connection to the shared store
  purge-all -count N         Delete every case (asks for confirmation)
  audit                      Show the local write log

  events [-n N] [-case id]   Show recent events (default: 50)
  events -f [pattern]        Stream events as they happen

  notify <message> [options] Publish a notice
    -level <level>           info (default), warning, error
    -case <id>               Attach to a case

  version                    Show version
  help                       Show this help`)
}

// printJSON outputs any value as formatted JSON
func (c *cli) printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(c.out, string(out))
}

func (c *cli) cmdStatus(ctx context.Context) error {
	h, err := c.api.Health(ctx)
	if err != nil {
		return err
	}
	cfg, err := c.api.Admin.Config(ctx)
	if err != nil {
		return err
	}
	ghosts, err := c.api.Stats.Ghosts(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		c.printJSON(map[string]interface{}{
			"version":     h.Version,
			"offline":     h.Offline,
			"maintenance": cfg.MaintenanceMode,
			"ghosts":      ghosts,
		})
		return nil
	}

	sync := "online"
	if h.Offline {
		sync = "offline (serving local copy)"
	}
	fmt.Fprintf(c.out, "Server:       %s (version %s)\n", c.api.BaseURL(), h.Version)
	fmt.Fprintf(c.out, "Sync:         %s\n", sync)
	fmt.Fprintf(c.out, "Maintenance:  %v\n", cfg.MaintenanceMode)
	fmt.Fprintf(c.out, "Ghost cases:  %d\n", ghosts)
	return nil
}

func (c *cli) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.out)
	var f client.Filter
	fs.BoolVar(&f.Ghosts, "ghosts", false, "")
	fs.StringVar(&f.Jurisdiction, "jurisdiction", "", "")
	fs.StringVar(&f.Category, "category", "", "")
	fs.StringVar(&f.Status, "status", "", "")
	fs.IntVar(&f.Month, "month", 0, "")
	fs.IntVar(&f.Year, "year", 0, "")
	fs.StringVar(&f.Query, "q", "", "")
	format := fs.String("format", "", "")
	tmpl := fs.String("template", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.api.Cases.List(ctx, &f)
	if err != nil {
		return err
	}
	return c.writeCases(list, *format, *tmpl)
}

func (c *cli) cmdBin(ctx context.Context) error {
	list, err := c.api.Cases.Bin(ctx)
	if err != nil {
		return err
	}
	return c.writeCases(list, "", "")
}

func (c *cli) writeCases(list []client.Case, format, tmpl string) error {
	opts := output.Options{Format: output.Format(format), Template: tmpl}
	if c.jsonOutput && format == "" {
		opts.Format = output.FormatJSON
	}
	f, err := output.NewFormatter(c.out, opts)
	if err != nil {
		return err
	}
	return f.WriteCases(list)
}

func (c *cli) cmdShow(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: casewatch-ctl show <id>")
	}
	v, err := c.api.Cases.Get(ctx, args[0])
	if err != nil {
		return err
	}
	c.printCase(v)
	return nil
}

func (c *cli) cmdMe(ctx context.Context) error {
	v, err := c.api.Cases.Mine(ctx)
	if err != nil {
		return err
	}
	c.printCase(v)
	return nil
}

func (c *cli) printCase(v *client.CaseView) {
	if c.jsonOutput {
		c.printJSON(v)
		return
	}
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(c.out, "%-18s %s\n", label+":", value)
		}
	}
	row("ID", v.ID)
	row("Name", v.DisplayName)
	row("Owner", v.OwnerContact)
	row("Category", v.Category)
	row("Jurisdiction", v.Jurisdiction)
	row("Status", v.Status)
	row("Submitted", v.Timeline.Submitted)
	row("Protocol", v.Timeline.ProtocolReceived)
	row("Docs requested", v.Timeline.DocsRequested)
	row("Approved", v.Timeline.Approved)
	row("Closed", v.Timeline.Closed)
	row("Note", v.Note)
	if !v.LastMutatedAt.IsZero() {
		row("Last update", v.LastMutatedAt.Local().Format("2006-01-02 15:04"))
	}
	if v.PendingSync {
		row("Sync", "pending (kept locally)")
	}
}

func (c *cli) cmdCreate(ctx context.Context, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: casewatch-ctl create <name> [-contact c] [-category c] [-jurisdiction j]")
	}
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(c.out)
	req := client.CreateRequest{DisplayName: args[0]}
	fs.StringVar(&req.Contact, "contact", "", "")
	fs.StringVar(&req.Category, "category", "", "")
	fs.StringVar(&req.Jurisdiction, "jurisdiction", "", "")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	m, err := c.api.Cases.Create(ctx, req)
	if err != nil {
		return err
	}
	c.printMutation("Created", m)
	return nil
}

func (c *cli) cmdClaim(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: casewatch-ctl claim <id> <contact>")
	}
	m, err := c.api.Cases.Claim(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	c.printMutation("Claimed", m)
	return nil
}

func (c *cli) printMutation(verb string, m *client.Mutation) {
	if c.jsonOutput {
		c.printJSON(m)
		return
	}
	suffix := ""
	if m.Offline {
		suffix = " (offline, will sync later)"
	}
	fmt.Fprintf(c.out, "%s %s%s\n", verb, m.Case.ID, suffix)
}

func (c *cli) cmdCaseAction(ctx context.Context, args []string, action string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: casewatch-ctl %s <id>", action)
	}
	id := args[0]

	var (
		offline bool
		err     error
		verb    string
	)
	switch action {
	case "checkin":
		var m *client.Mutation
		m, err = c.api.Cases.CheckIn(ctx, id)
		if m != nil {
			offline = m.Offline
		}
		verb = "Checked in"
	case "delete":
		offline, err = c.api.Cases.Delete(ctx, id)
		verb = "Moved to bin"
	case "restore":
		offline, err = c.api.Cases.Restore(ctx, id)
		verb = "Restored"
	case "purge":
		offline, err = c.api.Cases.Purge(ctx, id)
		verb = "Purged"
	}
	if err != nil {
		return err
	}

	if c.jsonOutput {
		c.printJSON(map[string]interface{}{"id": id, "action": action, "offline": offline})
		return nil
	}
	if offline {
		fmt.Fprintf(c.out, "%s %s (offline, will sync later)\n", verb, id)
	} else {
		fmt.Fprintf(c.out, "%s %s\n", verb, id)
	}
	return nil
}

func localeFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	locale := fs.String("locale", "", "")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *locale, nil
}

func (c *cli) cmdPredict(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: casewatch-ctl predict <id> [-locale en|es|pt]")
	}
	locale, err := localeFlag("predict", args[1:])
	if err != nil {
		return err
	}
	p, err := c.api.Cases.Prediction(ctx, args[0], locale)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(p)
		return nil
	}
	if p.Date != "" {
		fmt.Fprintf(c.out, "Expected decision: %s (%s confidence, %d cases)\n", p.Date, p.Confidence, p.SampleSize)
	}
	fmt.Fprintln(c.out, p.Reasoning)
	return nil
}

func (c *cli) cmdStats(ctx context.Context) error {
	st, err := c.api.Stats.Get(ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(st)
		return nil
	}

	fmt.Fprintf(c.out, "Cases: %d total, %d active, %d ghosts, %d stale, %d finished\n",
		st.Total, st.Active, st.Ghosts, st.Stale, st.Terminal)
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "%-26s %6s %6s %6s %8s\n", "WAIT", "CASES", "MEAN", "MODE", "STDDEV")
	fmt.Fprintln(c.out, strings.Repeat("-", 56))
	for _, w := range []struct {
		label string
		s     client.WaitSummary
	}{
		{"submission to approval", st.SubmissionToApproval},
		{"protocol to approval", st.ProtocolToApproval},
		{"submission to protocol", st.SubmissionToProtocol},
	} {
		fmt.Fprintf(c.out, "%-26s %6d %6d %6d %8.1f\n", w.label, w.s.Count, w.s.MeanDays, w.s.Mode, w.s.StdDev)
	}

	printBuckets := func(title string, buckets []client.Bucket) {
		if len(buckets) == 0 {
			return
		}
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, title)
		for _, b := range buckets {
			fmt.Fprintf(c.out, "  %-28s %d\n", b.Key, b.Count)
		}
	}
	printBuckets("By status:", st.ByStatus)
	printBuckets("By jurisdiction:", st.ByJurisdiction)
	printBuckets("By category:", st.ByCategory)
	return nil
}

func (c *cli) cmdSummary(ctx context.Context, args []string) error {
	locale, err := localeFlag("summary", args)
	if err != nil {
		return err
	}
	n, err := c.api.Stats.Summary(ctx, locale)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(n)
		return nil
	}
	fmt.Fprintln(c.out, n.Text)
	return nil
}

func (c *cli) cmdMaintenance(ctx context.Context, args []string) error {
	if len(args) > 0 {
		var on bool
		switch args[0] {
		case "on":
			on = true
		case "off":
		default:
			return fmt.Errorf("usage: casewatch-ctl maintenance [on|off]")
		}
		if err := c.api.Admin.SetMaintenance(ctx, on); err != nil {
			return err
		}
	}
	cfg, err := c.api.Admin.Config(ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(cfg)
		return nil
	}
	state := "off"
	if cfg.MaintenanceMode {
		state = "on"
	}
	fmt.Fprintf(c.out, "Maintenance mode is %s\n", state)
	return nil
}

func (c *cli) cmdVerify(ctx context.Context) error {
	conn, err := c.api.Admin.Verify(ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(conn)
		return nil
	}
	fmt.Fprintf(c.out, "Connected: %d records in the shared store\n", conn.Records)
	return nil
}

func (c *cli) cmdPurgeAll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("purge-all", flag.ContinueOnError)
	fs.SetOutput(c.out)
	count := fs.Int("count", -1, "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count < 0 {
		return fmt.Errorf("usage: casewatch-ctl purge-all -count N (N is the number of cases you expect to delete)")
	}

	fmt.Fprintf(c.out, "This permanently deletes %d cases for everyone.\n", *count)
	fmt.Fprintf(c.out, "Type %q to continue: ", client.PurgePhrase)
	phrase, _ := bufio.NewReader(c.in).ReadString('\n')
	phrase = strings.TrimRight(phrase, "\r\n")

	n, err := c.api.Admin.PurgeAll(ctx, phrase, *count)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Purged %d cases\n", n)
	return nil
}

func (c *cli) cmdAudit(ctx context.Context) error {
	entries, err := c.api.Admin.Audit(ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(entries)
		return nil
	}
	fmt.Fprintf(c.out, "%-20s %-12s %-36s %s\n", "TIME", "OP", "CASE", "RESULT")
	fmt.Fprintln(c.out, strings.Repeat("-", 90))
	for _, e := range entries {
		result := "ok"
		switch {
		case e.Offline:
			result = "offline"
		case !e.Success:
			result = "failed: " + e.Error
		}
		fmt.Fprintf(c.out, "%-20s %-12s %-36s %s\n", e.At.Local().Format("2006-01-02 15:04:05"), e.Op, e.ID, result)
	}
	return nil
}

func (c *cli) cmdEvents(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(c.out)
	limit := fs.Int("n", 50, "")
	caseID := fs.String("case", "", "")
	follow := fs.Bool("f", false, "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *follow {
		pattern := fs.Arg(0)
		if pattern == "" {
			pattern = "*"
		}
		err := c.api.Events.Watch(ctx, pattern, 0, func(ev client.Event) error {
			c.printEvent(ev)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	events, err := c.api.Events.List(ctx, &client.ListOptions{Limit: *limit, CaseID: *caseID})
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(events)
		return nil
	}
	fmt.Fprintf(c.out, "%-20s %-24s %-36s %s\n", "TIME", "TYPE", "CASE", "DETAILS")
	fmt.Fprintln(c.out, strings.Repeat("-", 100))
	for _, ev := range events {
		c.printEvent(ev)
	}
	return nil
}

func (c *cli) printEvent(ev client.Event) {
	if c.jsonOutput {
		out, _ := json.Marshal(ev)
		fmt.Fprintln(c.out, string(out))
		return
	}
	keys := make([]string, 0, len(ev.Payload))
	for k := range ev.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ev.Payload[k]))
	}
	fmt.Fprintf(c.out, "%-20s %-24s %-36s %s\n",
		ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
		ev.Type,
		ev.CaseID,
		strings.Join(parts, " "),
	)
}

func (c *cli) cmdNotify(ctx context.Context, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: casewatch-ctl notify <message> [-level info|warning|error] [-case id]")
	}
	fs := flag.NewFlagSet("notify", flag.ContinueOnError)
	fs.SetOutput(c.out)
	level := fs.String("level", string(client.NotifyInfo), "")
	caseID := fs.String("case", "", "")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	switch client.NotifyLevel(*level) {
	case client.NotifyInfo, client.NotifyWarning, client.NotifyError:
	default:
		return fmt.Errorf("invalid level %q (use info, warning, or error)", *level)
	}

	resp, err := c.api.Notify.Send(ctx, args[0], client.NotifyLevel(*level), *caseID)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		c.printJSON(resp)
		return nil
	}
	fmt.Fprintf(c.out, "Published %s (%s)\n", resp.Type, resp.ID)
	return nil
}
