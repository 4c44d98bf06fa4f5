// Command electrooms allocates election rounds into rooms and provisions
// their group chats.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/electrooms/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
