package cmd

import (
	"drivemirror/internal/model"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var copyWait bool

var copyCmd = &cobra.Command{
	Use:   "copy <source-url> [destination-url]",
	Short: "Copy a folder tree and keep monitoring it",
	Long:  "Copy a folder tree and keep monitoring it. Without a destination the tree is copied into the configured root folder.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := pairArgs(args)

		var result map[string]string
		if err := call(http.MethodPost, "/copy", map[string]string{"src": src, "dst": dst}, &result); err != nil {
			return err
		}

		fmt.Printf("copy started (run %s)\n", result["run_id"])
		if !copyWait {
			return nil
		}

		return waitRun(result["run_id"])
	},
}

func pairArgs(args []string) (string, string) {
	if len(args) == 2 {
		return args[0], args[1]
	}
	return args[0], ""
}

// waitRun polls the daemon until the run leaves the running state.
func waitRun(id string) error {
	for {
		var snap model.RunSnapshot
		if err := call(http.MethodGet, "/runs/"+id, nil, &snap); err != nil {
			return err
		}

		switch snap.Status {
		case model.RunStatusDone:
			fmt.Println("done")
			return nil
		case model.RunStatusFailed:
			return fmt.Errorf("run failed: %s", snap.Error)
		}

		time.Sleep(500 * time.Millisecond)
	}
}

func init() {
	copyCmd.Flags().BoolVar(&copyWait, "wait", false, "wait until the copy finishes")
	rootCmd.AddCommand(copyCmd)
}
