package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	akitavm "github.com/sarchlab/akita/v4/mem/vm"

	"github.com/sarchlab/chmemsim/config"
	"github.com/sarchlab/chmemsim/memsys"
	"github.com/sarchlab/chmemsim/recorder"
	"github.com/sarchlab/chmemsim/trace"
)

var (
	flagConfigPath string
	flagTracePath  string
	flagMode       string
	flagRecordDB   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a trace and report memory-hierarchy statistics",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringVar(&flagConfigPath, "config", "", "path to a JSON configuration file (defaults built in if omitted)")
	runCmd.Flags().StringVar(&flagTracePath, "trace", "", "path to the reference trace to replay (required)")
	runCmd.Flags().StringVar(&flagMode, "mode", "", "override the configured simulation mode: A, B, C or DEF")
	runCmd.Flags().StringVar(&flagRecordDB, "record-db", "", "optional path to a SQLite file recording every reference")
	_ = runCmd.MarkFlagRequired("trace")
}

func runSimulation(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if flagMode != "" {
		cfg.Mode = config.Mode(flagMode)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reader, err := trace.Open(flagTracePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	recordDB := cfg.RecordDB
	if flagRecordDB != "" {
		recordDB = flagRecordDB
	}

	var rec *recorder.Recorder
	if recordDB != "" {
		rec, err = recorder.New(recordDB)
		if err != nil {
			return err
		}
		defer rec.Close()
	}

	sys := memsys.New(cfg)

	var cycle uint64
	for {
		ref, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		cycle++
		delay := sys.Access(cycle, ref.Addr, ref.Type, akitavm.PID(ref.CoreID))

		if rec != nil {
			rec.Record(recorder.Entry{
				Cycle:   cycle,
				CoreID:  uint32(ref.CoreID),
				Address: ref.Addr,
				Type:    ref.Type.String(),
				Delay:   delay,
			})
		}
	}

	sys.PrintStats(os.Stdout)
	return nil
}

func loadConfig() (*config.Config, error) {
	if flagConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfigPath)
}
