package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"secretline/internal/app"
	"secretline/internal/domain"
	"secretline/internal/logging"
)

var appCtx *app.Wire

func Execute() error {
	v := app.NewViper()

	root := &cobra.Command{
		Use:           "secretline",
		Short:         "End-to-end encrypted chat CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			cfg, err := app.LoadConfig(v, configFile)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
				return err
			}
			appCtx, err = app.NewWire(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			w := appCtx
			appCtx = nil
			return w.Close()
		},
	}
	if err := app.BindFlags(v, root.PersistentFlags()); err != nil {
		return err
	}

	root.AddCommand(
		createChatCmd(),
		initCmd(),
		approveCmd(),
		loadKeyCmd(),
		statusCmd(),
		sendCmd(),
		recvCmd(),
		watchCmd(),
		fingerprintCmd(),
		leaveCmd(),
		logoutCmd(),
		groupCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if appCtx != nil {
			_ = appCtx.Close()
		}
	}
	return err
}

// self returns our member id or fails when none is configured.
func self() (domain.MemberID, error) {
	if err := appCtx.Config.RequireMember(); err != nil {
		return "", err
	}
	return domain.MemberID(appCtx.Config.Member), nil
}

// channelKind reads the --group flag shared by commands that work on either kind.
func channelKind(cmd *cobra.Command) domain.ChannelKind {
	if group, _ := cmd.Flags().GetBool("group"); group {
		return domain.KindGroup
	}
	return domain.KindDirect
}

func addGroupFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("group", "g", false, "the channel is a group channel")
}
