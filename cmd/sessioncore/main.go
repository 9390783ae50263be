package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/CZERTAINLY/SessionCore/internal/log"
	"github.com/CZERTAINLY/SessionCore/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v        = viper.New()
	settings service.Settings
)

func main() {
	if err := service.RegisterFlags(v, rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	// never print messages
	rootCmd.SilenceErrors = true

	// parse settings, setup logging
	rootCmd.PersistentPreRunE = initSessionCore

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	// a closed stdout must not kill the supervisor, writes fail with EPIPE
	signal.Ignore(syscall.SIGPIPE)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("sessioncore failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "sessioncore",
	Short:        "Supervisor of a Minecraft server running with authlib-injector",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         doRun,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run command installs the configuration if needed and supervises the server, same as no command",
	Args:  cobra.NoArgs,
	RunE:  doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a sessioncore",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("sessioncore: version info not available")
			return
		}

		fmt.Printf("sessioncore: %s\n", info.Main.Version)
		fmt.Printf("go:          %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:      %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:        %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:       %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("sessioncore",
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	return service.Run(ctx, settings, service.Streams{
		In:  os.Stdin,
		Out: os.Stdout,
	})
}

func initSessionCore(cmd *cobra.Command, _ []string) error {
	var err error
	settings, err = service.ParseSettings(v)
	if err != nil {
		return err
	}

	// initialize logging
	slog.SetDefault(log.New(settings.LogFormat, settings.Verbose, os.Stdout, os.Stderr))

	slog.Debug("sessioncore run", "settings", settings)
	return nil
}
