package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tesserabio/tessera-cli/pkg/client"
	"github.com/tesserabio/tessera-cli/pkg/output"
)

func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage analysis runs",
	}
	cmd.AddCommand(
		newRunsListCommand(),
		newRunsGetCommand(),
		newRunsCreateCommand(),
		newRunsCancelCommand(),
	)
	return cmd
}

func newRunsListCommand() *cobra.Command {
	var appID string
	var states []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analysis runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(cmd.Context(), rt)
			if err != nil {
				return err
			}
			runs, err := api.Runs().List(cmd.Context(), client.RunListOptions{
				ApplicationID: appID,
				State:         states,
			})
			if err != nil {
				return err
			}

			format, err := rt.OutputFormat()
			if err != nil {
				return &Error{Code: CodeConfigError, Err: err}
			}
			if format == output.FormatTable {
				output.WriteRunTable(rt.Writer(), runs)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, runs)
		},
	}

	cmd.Flags().StringVar(&appID, "app", "", "Filter by application ID")
	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by run state (repeatable)")

	return cmd
}

func newRunsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one analysis run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(cmd.Context(), rt)
			if err != nil {
				return err
			}
			run, err := api.Runs().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeRun(rt, run)
		},
	}
}

func newRunsCreateCommand() *cobra.Command {
	var appID string
	var slides []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start an analysis run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(cmd.Context(), rt)
			if err != nil {
				return err
			}
			run, err := api.Runs().Create(cmd.Context(), client.RunRequest{
				ApplicationID: appID,
				SlideIDs:      slides,
			})
			if err != nil {
				return err
			}
			return writeRun(rt, run)
		},
	}

	cmd.Flags().StringVar(&appID, "app", "", "Application ID to run")
	cmd.Flags().StringSliceVar(&slides, "slide", nil, "Slide ID to include (repeatable)")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("slide")

	return cmd
}

func newRunsCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an analysis run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(cmd.Context(), rt)
			if err != nil {
				return err
			}
			run, err := api.Runs().Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeRun(rt, run)
		},
	}
}

func writeRun(rt *runtimeState, run *client.Run) error {
	format, err := rt.OutputFormat()
	if err != nil {
		return &Error{Code: CodeConfigError, Err: err}
	}
	if format == output.FormatTable {
		output.WriteRunTable(rt.Writer(), []client.Run{*run})
		return nil
	}
	return output.WriteObject(rt.Writer(), format, run)
}
