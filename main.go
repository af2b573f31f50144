package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logTag = "[cmd]"

var (
	envFile    string
	logMode    string
	logFile    string
	cpuprofile bool
	// Version is set during build
	Version string
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the command line and returns the process exit code.
func execute(args []string) int {
	var stopper interface{ Stop() }
	root := newRootCommand(&stopper)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if stopper != nil {
		stopper.Stop()
	}
	if err == nil {
		return 0
	}
	if code, ok := isExitError(err); ok {
		return code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

func newRootCommand(stopper *interface{ Stop() }) *cobra.Command {
	root := &cobra.Command{
		Use:           "rebuild-indices",
		Short:         "Rebuild the search indices of every registered entity while the cluster stays online",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(logMode, logFile)
			if cpuprofile {
				*stopper = profile.Start()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&envFile, "env", ".env", "Path to file with environment variables to load in KEY=VALUE format")
	flags.StringVar(&logMode, "log", "info", "Log mode, one of: debug (most verbose), info and error")
	flags.StringVar(&logFile, "log-file", "", "Write logs to a rotated file instead of stderr")
	flags.BoolVar(&cpuprofile, "cpuprofile", false, "Write a cpu profile to the working directory")

	root.AddCommand(
		newRunCommand(),
		newIndicesCommand(),
		newCleanupCommand(),
		newScheduleCommand(),
	)
	return root
}

func setupLogging(mode, file string) {
	log.SetReportCaller(true)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006/01/02 15:04:05",
		DisableLevelTruncation: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := path.Base(f.File)
			return "", fmt.Sprintf(" %s:%d", filename, f.Line)
		},
	})

	switch mode {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if file != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    100,
			MaxAge:     14,
			MaxBackups: 10,
		})
	}
}

// exitError carries a non-zero exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func isExitError(err error) (int, bool) {
	if e, ok := err.(*exitError); ok {
		return e.code, true
	}
	return 0, false
}
