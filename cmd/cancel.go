package cmd

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cancelYes bool

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Delete every copied object and drop all monitor tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cancelYes {
			fmt.Print("This deletes every object copied by every monitor task. Continue? [y/N] ")
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Println("aborted")
				return nil
			}
		}

		var result map[string]string
		if err := call(http.MethodPost, "/cancel", nil, &result); err != nil {
			return err
		}

		fmt.Printf("cancellation started (run %s), follow it with 'drivemirror log'\n", result["run_id"])
		return nil
	},
}

func init() {
	cancelCmd.Flags().BoolVarP(&cancelYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(cancelCmd)
}
