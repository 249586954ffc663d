package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jengzang/mobility-backend-go/internal/service"
)

var importStationsCmd = &cobra.Command{
	Use:   "import-stations <stations.csv|->",
	Short: "Load base stations from \"id,cell,lon,lat\" lines",
	Args:  cobra.ExactArgs(1),
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

		n, err := service.NewImportService(e.db, e.logger).ImportStations(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d stations\n", n)
		return nil
	},
}

var importRoadsCmd = &cobra.Command{
	Use:   "import-roads <roads.geojson|->",
	Short: "Load road polylines from a GeoJSON FeatureCollection",
	Args:  cobra.ExactArgs(1),
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

		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		n, err := service.NewImportService(e.db, e.logger).ImportRoads(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d road segments\n", n)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		e.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importStationsCmd, importRoadsCmd, migrateCmd)
}
