package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"BinPulse/internal/domain/models"
	xhttp "BinPulse/pkg/http"

	"github.com/joho/godotenv"
)

const defaultAddr = "http://localhost:8080"

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("BINPULSE_ADDR", defaultAddr), "BinPulse API base URL")
	user := flag.String("user", os.Getenv("BINPULSE_USER"), "value sent as X-User-ID")
	admin := flag.Bool("admin", false, "send X-User-Role: ADMIN")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(2)
	}

	role := ""
	if *admin {
		role = string(models.RoleAdmin)
	}
	c := &ctl{
		client: xhttp.NewClient(*addr,
			xhttp.WithTimeout(*timeout),
			xhttp.WithHeader(xhttp.HeaderUserID, *user),
			xhttp.WithHeader(xhttp.HeaderUserRole, role),
		),
		out: os.Stdout,
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := c.run(ctx, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: simctl [-addr URL] [-user ID] [-admin] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  status     fleet snapshot and stats")
	fmt.Fprintln(os.Stderr, "  tick       run one simulation tick")
	fmt.Fprintln(os.Stderr, "  start      start the periodic scheduler")
	fmt.Fprintln(os.Stderr, "  stop       stop the periodic scheduler")
	fmt.Fprintln(os.Stderr, "  scheduler  scheduler status")
	fmt.Fprintln(os.Stderr, "  bins       list bins (needs -user)")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type ctl struct {
	client *xhttp.Client
	out    io.Writer
}

func (c *ctl) run(ctx context.Context, cmd string) error {
	switch cmd {
	case "status":
		var snap models.SimulationSnapshot
		if err := c.call(ctx, xhttp.MethodGet, "/api/simulation", &snap); err != nil {
			return err
		}
		c.printStats(snap.Stats)
		c.printSnapshot(snap.Bins)
	case "tick":
		var sum models.TickSummary
		if err := c.call(ctx, xhttp.MethodPost, "/api/simulation", &sum); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "tick %d: %d bins updated in %dms\n", sum.Tick, sum.BinsUpdated, sum.DurationMs)
		for _, u := range sum.Updates {
			fmt.Fprintln(c.out, "  "+u)
		}
		for _, f := range sum.Failed {
			fmt.Fprintf(c.out, "  FAILED %s: %s\n", f.BinID, f.Error)
		}
		c.printStats(sum.Stats)
	case "start", "stop":
		var st models.SchedulerStatus
		if err := c.callData(ctx, xhttp.MethodPost, "/api/simulation/scheduler/"+cmd, &st); err != nil {
			return err
		}
		c.printScheduler(st)
	case "scheduler":
		var st models.SchedulerStatus
		if err := c.callData(ctx, xhttp.MethodGet, "/api/simulation/scheduler", &st); err != nil {
			return err
		}
		c.printScheduler(st)
	case "bins":
		var rows []models.Bin
		if err := c.callData(ctx, xhttp.MethodGet, "/api/bins", &xhttp.ListDataResponse{Rows: &rows}); err != nil {
			return err
		}
		c.printBins(rows)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// call decodes endpoints that answer with a bare JSON body.
func (c *ctl) call(ctx context.Context, method, path string, dest interface{}) error {
	return c.client.Do(ctx, &xhttp.Request{Method: method, Path: path}, dest)
}

func (c *ctl) callData(ctx context.Context, method, path string, dest interface{}) error {
	return c.client.DoData(ctx, &xhttp.Request{Method: method, Path: path}, dest)
}

func (c *ctl) printStats(s models.SimulationStats) {
	fmt.Fprintf(c.out, "bins=%d low=%d medium=%d high=%d avg=%.1f%%\n",
		s.TotalBins, s.LowPriority, s.MediumPriority, s.HighPriority, s.AverageFillLevel)
}

func (c *ctl) printSnapshot(bins []models.BinSnapshot) {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BIN\tCATEGORY\tLEVEL\tSTATUS\tLAST EMPTIED")
	for _, b := range bins {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%s\n", b.BinID, b.Category, b.CurrentLevel, b.Status, b.LastEmptied.Format(time.RFC3339))
	}
	_ = w.Flush()
}

func (c *ctl) printBins(bins []models.Bin) {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBIN\tCATEGORY\tLOCATION\tLEVEL\tSTATUS")
	for _, b := range bins {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%s\n", b.ID, b.BinID, b.Category, b.Location, b.CurrentLevel, b.Status)
	}
	_ = w.Flush()
}

func (c *ctl) printScheduler(s models.SchedulerStatus) {
	b, _ := json.MarshalIndent(s, "", "  ")
	fmt.Fprintln(c.out, string(b))
}
