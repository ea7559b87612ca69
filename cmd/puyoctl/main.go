// Command puyoctl evaluates the match rules from the command line.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MJE43/puyobattle/internal/conformance"
	"github.com/MJE43/puyobattle/internal/margin"
	"github.com/MJE43/puyobattle/internal/nuisance"
	"github.com/MJE43/puyobattle/internal/scoring"
	"github.com/MJE43/puyobattle/internal/seed"
	"github.com/MJE43/puyobattle/internal/settings"
)

const usage = `usage: puyoctl <command> [flags]

commands:
  build        build settings from raw field values
  decode       decode a settings wire string
  score        score one chain step
  nuisance     convert score into attack units
  margin       print the margin time schedule for a wire string
  seed         derive a match seed from a host secret
  conformance  check a wire string against the JavaScript peer codec
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "puyoctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return fmt.Errorf("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "build":
		return runBuild(rest, out)
	case "decode":
		return runDecode(rest, out)
	case "score":
		return runScore(rest, out)
	case "nuisance":
		return runNuisance(rest, out)
	case "margin":
		return runMargin(rest, out)
	case "seed":
		return runSeed(rest, out)
	case "conformance":
		return runConformance(rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func runBuild(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	values := make(map[settings.Field]*string, len(settings.Fields))
	for _, f := range settings.Fields {
		values[f] = fs.String(string(f), "", "raw "+string(f)+" value")
	}
	verbose := fs.Bool("v", false, "print per-field results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b := settings.NewBuilder()
	fs.Visit(func(fl *flag.Flag) {
		if f := settings.Field(fl.Name); values[f] != nil {
			b.Set(f, *values[f])
		}
	})
	s, results := b.Resolve()

	if *verbose {
		for _, r := range results {
			line := fmt.Sprintf("%-13s %-8s", r.Field, r.Status)
			if r.Raw != "" {
				line += fmt.Sprintf(" raw=%q", r.Raw)
			}
			if r.Reason != "" {
				line += " (" + r.Reason + ")"
			}
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprintln(out, s.Serialize())
	return nil
}

func runDecode(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := settings.Deserialize(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(out, "gamemode      %s\n", s.Gamemode)
	fmt.Fprintf(out, "board         %d x %d (%d colours)\n", s.Cols, s.Rows, s.NumColours)
	fmt.Fprintf(out, "gravity       %s\n", settings.FormatFloat(s.Gravity))
	fmt.Fprintf(out, "soft drop     %s\n", settings.FormatFloat(s.SoftDrop))
	fmt.Fprintf(out, "target points %s\n", humanize.Comma(int64(s.TargetPoints)))
	fmt.Fprintf(out, "margin time   %s\n", s.MarginTime)
	fmt.Fprintf(out, "min chain     %d\n", s.MinChain)
	fmt.Fprintf(out, "seed          %s\n", settings.FormatFloat(s.Seed))
	if err := s.Validate(); err != nil {
		fmt.Fprintf(out, "warning       %v\n", err)
	}
	return nil
}

// runScore takes groups as colour=count pairs, e.g. "Red=4 Blue=5".
func runScore(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	chain := fs.Int("chain", 1, "chain index, 1-based")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var tiles []scoring.Tile
	for _, g := range fs.Args() {
		name, count, ok := strings.Cut(g, "=")
		if !ok {
			return fmt.Errorf("group %q: want colour=count", g)
		}
		c, err := scoring.ParseColour(name)
		if err != nil {
			return err
		}
		var n int
		if _, err := fmt.Sscanf(count, "%d", &n); err != nil || n < 0 {
			return fmt.Errorf("group %q: bad count", g)
		}
		tiles = append(tiles, scoring.Tiles(c, n)...)
	}

	b, err := scoring.Explain(tiles, *chain)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tiles=%d chain_power=%d colour_bonus=%d group_bonus=%d\n", b.Tiles, b.ChainPower, b.ColourBonus, b.GroupBonus)
	fmt.Fprintf(out, "score %s\n", humanize.Comma(int64(b.Score)))
	return nil
}

func runNuisance(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("nuisance", flag.ContinueOnError)
	score := fs.Int("score", 0, "score delta")
	target := fs.Int("target", settings.DefaultTargetPoints, "target points")
	carry := fs.Float64("carry", 0, "carry in [0, 1)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := nuisance.Convert(*score, *target, *carry)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "units %s carry %s\n", humanize.Comma(int64(res.Units)), settings.FormatFloat(res.Carry))
	return nil
}

func runMargin(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("margin", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := settings.Deserialize(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}

	start := time.Time{}.Add(time.Hour)
	sched := margin.Schedule(start, s.MarginTime, s.TargetPoints)
	fmt.Fprintf(out, "start target %d\n", s.TargetPoints)
	for _, r := range sched {
		fmt.Fprintf(out, "%9s  #%-2d %4d -> %d\n", r.At.Sub(start), r.Count, r.From, r.To)
	}
	if len(sched) > 0 {
		fmt.Fprintf(out, "frozen after %s\n", sched[len(sched)-1].At.Sub(start))
	}
	return nil
}

func runSeed(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	secret := fs.String("secret", os.Getenv("PUYO_HOST_SECRET"), "host secret")
	room := fs.String("room", "", "room id")
	nonce := fs.Uint64("nonce", 0, "match nonce")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" || *room == "" {
		return fmt.Errorf("seed needs -secret and -room")
	}

	fmt.Fprintf(out, "seed       %s\n", settings.FormatFloat(seed.MatchSeed(*secret, *room, *nonce)))
	fmt.Fprintf(out, "commitment %s\n", seed.Commitment(*secret))
	return nil
}

func runConformance(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("conformance", flag.ContinueOnError)
	peer := fs.String("peer", "", "path to a JavaScript peer codec (default: built-in)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := settings.Deserialize(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}

	var c *conformance.Checker
	if *peer == "" {
		c, err = conformance.NewChecker()
	} else {
		var src []byte
		if src, err = os.ReadFile(*peer); err == nil {
			c, err = conformance.NewCheckerFromSource(string(src))
		}
	}
	if err != nil {
		return err
	}

	rep, err := c.Check(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "go   %s\npeer %s\n", rep.Wire, rep.PeerWire)
	for _, m := range rep.Mismatches {
		fmt.Fprintf(out, "mismatch %s %s want=%s got=%s\n", m.Direction, m.Field, m.Want, m.Got)
	}
	if !rep.OK() {
		return fmt.Errorf("%d mismatches", len(rep.Mismatches))
	}
	fmt.Fprintln(out, "ok")
	return nil
}
