package main

import (
	"os"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/internal/logging"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		l := appLogger
		if l == nil {
			l, _ = logging.New(os.Stdout, os.Stderr, "", false)
		}
		l.Errorf("%v", err)
	}
	appLogger.Close()

	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run failure to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.Is(err, errs.KindConfiguration):
		return 2
	default:
		return 1
	}
}
