package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/offheap"
)

var (
	simObjects    int
	simMinSize    int
	simMaxSize    int
	simRemoveRate float64
	simLinkRate   float64
	simGCEvery    int
	simSeed       int64
	simDump       bool
	simExport     string
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntVarP(&simObjects, "objects", "n", 1000, "Number of objects to store")
	cmd.Flags().IntVar(&simMinSize, "min-size", 8, "Minimum payload size in bytes")
	cmd.Flags().IntVar(&simMaxSize, "max-size", 256, "Maximum payload size in bytes")
	cmd.Flags().Float64Var(&simRemoveRate, "remove-rate", 0.2, "Probability of removing a random object after each store")
	cmd.Flags().Float64Var(&simLinkRate, "link-rate", 0.3, "Probability of linking a new object under a random one")
	cmd.Flags().IntVar(&simGCEvery, "gc-every", 100, "Run garbage collection every N stores (0 disables)")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Workload seed")
	cmd.Flags().BoolVar(&simDump, "dump", false, "Print the full block report")
	cmd.Flags().StringVar(&simExport, "export", "", "Export the block report under this name to the configured store")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Run a synthetic workload and report the arena layout",
		Long: `The simulate command stores random payloads, removes and links some of
them, collects garbage periodically and prints a summary.

Example:
  offheapctl simulate --capacity 1MiB -n 5000
  offheapctl simulate --config offheap.yaml --export reports/run.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd)
		},
	}
}

type payload struct {
	ID   int
	Data []byte
}

type workloadResult struct {
	Stored    int
	OOM       int
	Removed   int
	Linked    int
	Collected int
	Elapsed   time.Duration
}

func runSimulate(cmd *cobra.Command) error {
	if simMinSize <= 0 || simMaxSize < simMinSize {
		return fmt.Errorf("invalid size range [%d, %d]", simMinSize, simMaxSize)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, mc, err := cfg.Options()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := offheap.Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := simulate(a)
	if err != nil {
		return err
	}

	s := a.Stats()
	printInfo(cmd, "Workload (seed %d): %d stored, %d out of memory, %d removed, %d linked, %d collected in %s\n",
		simSeed, res.Stored, res.OOM, res.Removed, res.Linked, res.Collected, res.Elapsed.Round(time.Microsecond))
	printInfo(cmd, "Arena:     %s capacity, %s used, %s free, high-water %s\n",
		humanize.IBytes(s.Capacity), humanize.IBytes(s.Used), humanize.IBytes(s.Free), humanize.IBytes(s.HighWater))
	printInfo(cmd, "Directory: %d live, %d deleted (%s), largest free run %s\n",
		s.Directory.Live, s.Directory.Deleted, humanize.IBytes(s.Directory.DeletedBytes), humanize.IBytes(s.Directory.LargestFree))
	if mc != nil {
		ms := mc.GetStats()
		printInfo(cmd, "Metrics:   %d stores (%d reused, avg %s), %d gc cycles\n",
			ms.StoreCount, ms.StoreReused, time.Duration(ms.StoreAvgNanos), ms.GCCount)
	}

	if err := a.Verify(); err != nil {
		return err
	}

	if simDump {
		if err := a.WriteReport(cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	if simExport != "" {
		store, err := cfg.Export.OpenStore(ctx)
		if err != nil {
			return err
		}
		if err := a.ExportReport(ctx, store, simExport); err != nil {
			return err
		}
		printInfo(cmd, "Report exported to %s store as %s\n", cfg.Export.Store, simExport)
	}
	return nil
}

func simulate(a *offheap.Allocator) (workloadResult, error) {
	rng := rand.New(rand.NewSource(simSeed)) //nolint:gosec // reproducible workload
	start := time.Now()

	var (
		res   workloadResult
		names []string
	)

	for i := range simObjects {
		data := make([]byte, simMinSize+rng.Intn(simMaxSize-simMinSize+1))
		_, _ = rng.Read(data)

		name, err := a.Store(payload{ID: i, Data: data})
		switch {
		case errors.Is(err, offheap.ErrOutOfMemory):
			res.OOM++
		case err != nil:
			return res, err
		default:
			res.Stored++
			if len(names) > 0 && rng.Float64() < simLinkRate {
				// The parent may have been collected already.
				switch err := a.Link(names[rng.Intn(len(names))], name); {
				case err == nil:
					res.Linked++
				case !errors.Is(err, offheap.ErrNotFound):
					return res, err
				}
			}
			names = append(names, name)
		}

		if len(names) > 0 && rng.Float64() < simRemoveRate {
			j := rng.Intn(len(names))
			err := a.Remove(names[j])
			if err != nil && !errors.Is(err, offheap.ErrNotFound) {
				return res, err
			}
			if err == nil {
				res.Removed++
			}
			names[j] = names[len(names)-1]
			names = names[:len(names)-1]
		}

		if simGCEvery > 0 && (i+1)%simGCEvery == 0 {
			n, err := a.CollectGarbage()
			if err != nil {
				return res, err
			}
			res.Collected += n
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}
