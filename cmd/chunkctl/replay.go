package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/chunkalloc/arena/alloc"
	"github.com/joshuapare/chunkalloc/arena/shadow"
	"github.com/joshuapare/chunkalloc/internal/logger"
	"github.com/joshuapare/chunkalloc/pkg/trace"
)

var (
	replayArenaSize string
	replayVerify    bool
	replayCompare   bool
	replayFill      bool
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayArenaSize, "arena-size", "64MiB", "Arena reservation size (e.g. 1MiB, 64MiB)")
	cmd.Flags().BoolVar(&replayVerify, "verify", false, "Verify heap invariants after every op")
	cmd.Flags().BoolVar(&replayCompare, "compare", false, "Compare engine and Go heap contents after every op")
	cmd.Flags().BoolVar(&replayFill, "fill", true, "Write a pattern into newly allocated bytes")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Replay an allocation trace",
		Long: `The replay command applies an allocation trace to a fresh allocator,
shadowing every call with the Go heap. Use "-" to read the trace from stdin.

Trace format, one op per line:
  alloc   <id> <size>
  calloc  <id> <count> <size>
  realloc <id> <size>
  free    <id>

Example:
  chunkctl replay workload.trace
  chunkctl replay workload.trace --arena-size 4MiB --verify --compare
  chunkctl gen --ops 10000 | chunkctl replay - --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args)
		},
	}
	return cmd
}

// ReplayReport is the replay output in JSON mode.
type ReplayReport struct {
	Trace  string       `json:"trace"`
	Result trace.Result `json:"result"`
	Stats  alloc.Stats  `json:"stats"`
}

func runReplay(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path := args[0]

	size, err := humanize.ParseBytes(replayArenaSize)
	if err != nil {
		return fmt.Errorf("invalid --arena-size %q: %w", replayArenaSize, err)
	}
	if size == 0 || size > math.MaxInt {
		return fmt.Errorf("invalid --arena-size %q: must be between 1 B and %s",
			replayArenaSize, humanize.IBytes(math.MaxInt))
	}

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer f.Close()
		in = f
	}

	fa := alloc.NewFirstFit(alloc.Options{ArenaSize: int(size)})
	defer fa.Close()
	tracker := shadow.New(shadow.Options{Engine: fa})

	opts := trace.ReplayOptions{
		Fill:    replayFill,
		Compare: replayCompare,
	}
	if replayVerify {
		opts.Check = fa.Verify
	}

	printVerbose("Replaying %s against a %s arena\n", path, humanize.IBytes(size))
	res, err := trace.Replay(ctx, in, tracker, opts)
	if err != nil {
		logger.Error("replay failed", "trace", path, "ops", res.Ops, "err", err)
		return fmt.Errorf("replay failed after %d ops: %w", res.Ops, err)
	}
	if !replayVerify {
		// Always check once at the end.
		if err := fa.Verify(); err != nil {
			logger.Error("heap verification failed", "trace", path, "err", err)
			return fmt.Errorf("heap verification failed: %w", err)
		}
	}
	if res.Failed > 0 {
		logger.Warn("allocations refused", "trace", path, "failed", res.Failed, "arenaSize", size)
	}
	logger.Info("replay finished", "trace", path, "ops", res.Ops, "live", res.Live, "peakLive", res.PeakLive)

	report := ReplayReport{Trace: path, Result: res, Stats: fa.GetStats()}
	if jsonOut {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func printReport(r ReplayReport) {
	res, s := r.Result, r.Stats
	printInfo("Replayed %d ops from %s\n", res.Ops, r.Trace)
	printInfo("  alloc: %d  calloc: %d  realloc: %d  free: %d\n",
		res.Allocs, res.Callocs, res.Reallocs, res.Frees)
	if res.Failed > 0 {
		printInfo("  out of memory: %d\n", res.Failed)
	}
	printInfo("  live at end: %d (%s requested), peak live: %d\n",
		res.Live, humanize.IBytes(uint64(res.Bytes)), res.PeakLive)

	printInfo("\nArena\n")
	printInfo("  reserved: %s, carved: %s, in use: %s\n",
		humanize.IBytes(uint64(s.ArenaSize)),
		humanize.IBytes(uint64(s.ArenaUsed)),
		humanize.IBytes(uint64(s.BytesInUse)))
	printInfo("  free chunks: %d\n", s.FreeChunks)

	printInfo("\nEngine\n")
	printInfo("  free-list hits: %d  bump allocs: %d  splits: %d\n",
		s.FreeListHits, s.BumpAllocs, s.SplitCount)
	printInfo("  coalesce forward: %d  backward: %d\n",
		s.CoalesceForward, s.CoalesceBackward)
}
