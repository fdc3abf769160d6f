package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"farmlink/internal/geocode"

	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Search places as you type",
	Long: `Reads one query per line from stdin and prints the places for the latest
query once input has been quiet for the debounce period. Older queries that
are still in flight are cancelled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		searcher := geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.Timeout, nil, logger.Named("geocode"))
		d := geocode.NewDebouncer(searcher, cfg.Geocode.Debounce)

		answered := make(chan string, 16)
		printed := make(chan struct{})
		go func() {
			defer close(printed)
			out := cmd.OutOrStdout()
			for res := range d.Results() {
				if res.Err != nil {
					fmt.Fprintf(out, "%s: %v\n", res.Query, res.Err)
				} else {
					fmt.Fprintf(out, "%s: %d place(s)\n", res.Query, len(res.Places))
					for _, p := range res.Places {
						fmt.Fprintf(out, "  %s (%.4f, %.4f)\n", p.Label(), p.Latitude, p.Longitude)
					}
				}
				select {
				case answered <- res.Query:
				default:
				}
			}
		}()

		var last string
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			last = strings.TrimSpace(scanner.Text())
			d.Query(last)
		}

		// piped input ends before the quiet period; give the last query its answer
		if last != "" {
			deadline := time.After(cfg.Geocode.Debounce + cfg.Geocode.Timeout)
		wait:
			for {
				select {
				case q := <-answered:
					if q == last {
						break wait
					}
				case <-deadline:
					break wait
				}
			}
		}

		d.Close()
		<-printed
		return scanner.Err()
	},
}
