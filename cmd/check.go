package cmd

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kairos-io/go-bootsum/pkg/boot"
	"github.com/kairos-io/go-bootsum/pkg/console"
	"github.com/kairos-io/go-bootsum/pkg/constants"
	"github.com/kairos-io/go-bootsum/pkg/gate"
	"github.com/kairos-io/go-bootsum/pkg/secureboot"
	"github.com/kairos-io/go-bootsum/pkg/system"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the boot volume against its checksum manifest and chain-load the original loader",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch viper.GetString("log-level") {
		case "debug":
			slog.SetLogLoggerLevel(slog.LevelDebug)
		case "info":
			slog.SetLogLoggerLevel(slog.LevelInfo)
		case "warn":
			slog.SetLogLoggerLevel(slog.LevelWarn)
		case "error":
			slog.SetLogLoggerLevel(slog.LevelError)
		default:
			slog.SetLogLoggerLevel(slog.LevelInfo)
		}

		volume := viper.GetString("volume")
		testMode := viper.GetBool("test-mode") || system.IsTestSystem()

		archTag := viper.GetString("arch")
		if archTag == "" {
			archTag = constants.ArchTag(runtime.GOARCH)
		}

		keyboard := console.NewKeyboard()
		defer keyboard.Close()

		runner := &gate.Runner{
			Volume:           os.DirFS(volume),
			ManifestName:     viper.GetString("manifest"),
			ArchTag:          archTag,
			TestMode:         testMode,
			Measure:          viper.GetBool("measure"),
			ReportPath:       viper.GetString("report"),
			ReportFormat:     viper.GetString("report-format"),
			Console:          console.New(testMode),
			Keyboard:         keyboard,
			Starter:          boot.ExecStarter{Root: volume},
			PowerOff:         system.PowerOff,
			SecureBootStatus: secureboot.GetStatus,
			SystemInfo:       system.GetInfo,
		}

		slog.Debug("Starting gate", "volume", volume, "manifest", runner.ManifestName, "arch", archTag, "test-mode", testMode)
		code := runner.Run()
		if code != constants.ExitOK {
			keyboard.Close()
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringP("volume", "v", "/boot", "Mount point of the boot volume to verify.")
	checkCmd.Flags().StringP("manifest", "m", constants.ManifestName, "Checksum manifest path, relative to the volume root.")
	checkCmd.Flags().StringP("arch", "a", "", "Arch tag for the chain-load target (defaults from GOARCH).")
	checkCmd.Flags().Bool("test-mode", false, "Force automated test mode (never prompts, powers off on exit).")
	checkCmd.Flags().Bool("measure", false, "Record emulated PCR measurements of the run.")
	checkCmd.Flags().String("report", "", "Write a machine-readable run report to this file.")
	checkCmd.Flags().String("report-format", "json", "Run report format (json or yaml).")
	checkCmd.Flags().String("log-level", "info", "Log level.")
	_ = viper.BindPFlags(checkCmd.Flags())

	rootCmd.AddCommand(checkCmd)
}
