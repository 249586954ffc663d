package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jengzang/mobility-backend-go/internal/service"
)

var (
	mineBatchSize int
	mineNoRoads   bool
	mineSource    string
)

var mineCmd = &cobra.Command{
	Use:   "mine <observations.csv|->",
	Short: "Mine circles, flow features and mobility graphs from an observation stream",
	Long: "Reads \"user_id,timestamp,location_id\" lines sorted by user and time, " +
		"splits them into person-days and stores flow features and mobility graphs.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		in, closeIn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeIn()

		window, err := service.WindowOptions(e.cfg)
		if err != nil {
			return err
		}

		svc := service.NewMiningService(e.db, window, nil, e.logger)
		svc.BatchSize = mineBatchSize
		svc.UseRoads = !mineNoRoads

		source := mineSource
		if source == "" {
			source = args[0]
		}
		task, err := svc.Run(cmd.Context(), in, source)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	},
}

func init() {
	mineCmd.Flags().IntVar(&mineBatchSize, "batch-size", service.DefaultBatchSize, "Person-days per transaction")
	mineCmd.Flags().BoolVar(&mineNoRoads, "no-roads", false, "Use great-circle edge distances even when roads are stored")
	mineCmd.Flags().StringVar(&mineSource, "source", "", "Source name recorded on the task (default: the input path)")
	rootCmd.AddCommand(mineCmd)
}
