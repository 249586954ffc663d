package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jengzang/mobility-backend-go/internal/service"
)

var (
	mesosNodes     int
	mesosBatchSize int
	mesosCompare   []string
)

var mesosCmd = &cobra.Command{
	Use:   "mesos",
	Short: "Compare stored mobility graphs pairwise within each node count",
	Long: "Without --compare, every pair of stored graphs with the same node count is " +
		"aligned and its structural distance stored. With --compare, the two given " +
		"graphs are aligned and the result printed.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		svc := service.NewMesosService(e.db, service.MesosOptions(e.cfg), nil, e.logger)
		svc.BatchSize = mesosBatchSize

		var result any
		if len(mesosCompare) > 0 {
			if len(mesosCompare) != 2 {
				return fmt.Errorf("--compare takes exactly two graphs, got %d", len(mesosCompare))
			}
			result, err = svc.Compare(mesosCompare[0], mesosCompare[1])
		} else {
			result, err = svc.Pairwise(cmd.Context(), mesosNodes)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	mesosCmd.Flags().IntVar(&mesosNodes, "nodes", 0, "Only compare graphs with this many nodes (0 = all)")
	mesosCmd.Flags().IntVar(&mesosBatchSize, "batch-size", service.DefaultBatchSize, "Results per transaction")
	mesosCmd.Flags().StringArrayVar(&mesosCompare, "compare", nil, "Graph in \"<nodes>|<edges>\" form; give twice")
	rootCmd.AddCommand(mesosCmd)
}
