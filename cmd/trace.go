package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"farmlink/internal/client"
	"farmlink/internal/models"

	"github.com/spf13/cobra"
)

var serverURL string

var traceCmd = &cobra.Command{
	Use:   "trace [lotId]",
	Short: "Show the provenance and journey of a lot",
	Long: `Looks up a lot on a running FarmLink server, the way the public trace
page does after scanning a QR code.

Example:
  farmlink trace LOT-GVF-2026-0206A`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(apiURL(), client.WithLogger(logger))
		lot, err := c.Trace(cmd.Context(), args[0])
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("lot not found: %s", args[0])
		}
		if err != nil {
			return err
		}
		printLot(cmd.OutOrStdout(), lot)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{traceCmd, loginCmd} {
		cmd.Flags().StringVar(&serverURL, "server", "", "FarmLink API base URL (default from server.port)")
	}
}

func apiURL() string {
	if serverURL != "" {
		return serverURL
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}

func printLot(w io.Writer, lot models.Lot) {
	t := lot.Traceability
	fmt.Fprintf(w, "Lot %s (order %s)\n", lot.LotID, lot.OrderID)
	fmt.Fprintf(w, "  Product:   %s\n", t.Product)
	fmt.Fprintf(w, "  Farm:      %s, %s\n", t.Farm, t.FarmLocation)
	fmt.Fprintf(w, "  Harvested: %s\n", t.HarvestDate)
	fmt.Fprintf(w, "  Quality:   %s\n", t.QualityGrade)
	if len(t.Certifications) > 0 {
		fmt.Fprintf(w, "  Certified: %s\n", strings.Join(t.Certifications, ", "))
	}
	fmt.Fprintf(w, "  Status:    %s\n", lot.Status)
	if lot.ETA != "" {
		fmt.Fprintf(w, "  ETA:       %s\n", lot.ETA)
	}

	fmt.Fprintln(w, "\nJourney:")
	for _, ev := range lot.Journey {
		mark := "o"
		if ev.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-18s %s\n", mark, ev.Title, ev.Description)
	}
}
