package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"impressa/internal/constants"
	"impressa/internal/types"
)

func newPrintersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "printers",
		Short: "Log in and list the available printers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			// Login renders the listing; its outcome decides the exit status.
			if err := c.login(cmd, a); err != nil {
				return err
			}
			if _, err := a.ctrl.Printers(); err != nil {
				return fmt.Errorf("%s: %w", constants.MsgPrintersFailed, err)
			}
			return nil
		},
	}
}

func newPrintCmd(c *cli) *cobra.Command {
	var (
		printerID string
		fileURL   string
		copies    int
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Log in and send one print job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if copies < 1 {
				return fmt.Errorf("--copies must be >= 1, got %d", copies)
			}

			a, err := newApp(cmd.Context(), c.cfg, c.logger, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := c.login(cmd, a); err != nil {
				return err
			}
			_, err = a.ctrl.SubmitJob(cmd.Context(), types.PrintJobRequest{
				PrinterID: types.ID(printerID),
				FileURL:   fileURL,
				Copies:    copies,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", constants.MsgPrintJobFailed, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&printerID, "printer", "", "printer id")
	cmd.Flags().StringVar(&fileURL, "url", "", "URL of the file to print")
	cmd.Flags().IntVar(&copies, "copies", 1, "number of copies (>= 1)")
	_ = cmd.MarkFlagRequired("printer")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Log in and print job notifications until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.streamEnabled(cmd) {
				return errors.New("watch needs the notification stream, which is disabled")
			}

			a, err := newApp(cmd.Context(), c.cfg, c.logger, cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := c.login(cmd, a); err != nil {
				return err
			}
			for _, f := range a.fields() {
				a.term.Field(f.Label, f.Value, f.Color)
			}

			select {
			case <-cmd.Context().Done():
			case <-a.ctrl.StreamDone():
				a.term.Hint("notification stream closed")
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "impressa v%s\n", constants.Version)
		},
	}
}
