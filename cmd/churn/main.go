// Command churn runs the customer churn pipeline stages.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := newRootCommand(log.Default()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "churn:", err)
		os.Exit(errs.ExitCode(err))
	}
}
