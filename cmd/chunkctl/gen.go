package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/chunkalloc/internal/logger"
	"github.com/joshuapare/chunkalloc/pkg/trace"
)

var (
	genOps     int
	genSeed    int64
	genMaxSize int
)

func init() {
	cmd := newGenCmd()
	cmd.Flags().IntVar(&genOps, "ops", 1000, "Number of ops before the final frees")
	cmd.Flags().Int64Var(&genSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&genMaxSize, "max-size", 1024, "Largest requested size")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Generate a random allocation trace",
		Long: `The gen command writes a seeded random trace to stdout. Every id it
allocates is freed by the end of the trace.

Example:
  chunkctl gen --ops 5000 --seed 42 > workload.trace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if genOps < 0 || genMaxSize < 1 {
				return fmt.Errorf("--ops must be >= 0 and --max-size >= 1")
			}
			recs := generate(genOps, genSeed, genMaxSize)
			logger.Debug("generated trace", "records", len(recs), "seed", genSeed, "maxSize", genMaxSize)
			return trace.Write(stdout, recs)
		},
	}
}

// generate builds a workload weighted towards allocation, with every id
// released at the end.
func generate(ops int, seed int64, maxSize int) []trace.Record {
	rng := rand.New(rand.NewSource(seed))
	recs := make([]trace.Record, 0, ops)
	var live []string
	next := 0
	newID := func() string {
		next++
		return fmt.Sprintf("p%d", next)
	}

	for range ops {
		op := rng.Intn(10)
		switch {
		case op < 4 || len(live) == 0:
			id := newID()
			recs = append(recs, trace.Record{Op: trace.OpAlloc, ID: id, Size: 1 + rng.Intn(maxSize)})
			live = append(live, id)
		case op < 5:
			id := newID()
			count := 1 + rng.Intn(16)
			recs = append(recs, trace.Record{Op: trace.OpCalloc, ID: id, Count: count, Size: 1 + rng.Intn(max(1, maxSize/count))})
			live = append(live, id)
		case op < 7:
			id := live[rng.Intn(len(live))]
			recs = append(recs, trace.Record{Op: trace.OpRealloc, ID: id, Size: 1 + rng.Intn(maxSize)})
		default:
			i := rng.Intn(len(live))
			recs = append(recs, trace.Record{Op: trace.OpFree, ID: live[i]})
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	for _, id := range live {
		recs = append(recs, trace.Record{Op: trace.OpFree, ID: id})
	}
	return recs
}
