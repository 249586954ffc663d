package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jengzang/mobility-backend-go/internal/service"
)

var motifNodes int

var motifsCmd = &cobra.Command{
	Use:   "motifs",
	Short: "Rank the motifs of the stored mobility graphs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		stats, err := service.NewMotifService(e.db, e.logger).Stats(motifNodes)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NODES\tINDEX\tEDGES\tCOUNT")
		for _, s := range stats {
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", s.Nodes, s.Index, s.Edges, s.Count)
		}
		return w.Flush()
	},
}

func init() {
	motifsCmd.Flags().IntVar(&motifNodes, "nodes", 0, "Only rank graphs with this many nodes (0 = all)")
	rootCmd.AddCommand(motifsCmd)
}
