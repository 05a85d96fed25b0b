package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tesserabio/tessera-cli/pkg/client"
	"github.com/tesserabio/tessera-cli/pkg/output"
)

func NewAppsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage platform applications",
	}
	cmd.AddCommand(
		newAppsListCommand(),
		newAppsGetCommand(),
	)
	return cmd
}

func newAppsListCommand() *cobra.Command {
	var name, modality string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available applications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(cmd.Context(), rt)
			if err != nil {
				return err
			}
			apps, err := api.Applications().List(cmd.Context(), client.ApplicationListOptions{
				Name:     name,
				Modality: modality,
			})
			if err != nil {
				return err
			}

			format, err := rt.OutputFormat()
			if err != nil {
				return &Error{Code: CodeConfigError, Err: err}
			}
			if format == output.FormatTable {
				output.WriteApplicationTable(rt.Writer(), apps)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, apps)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Filter by application name")
	cmd.Flags().StringVar(&modality, "modality", "", "Filter by imaging modality")

	return cmd
}

func newAppsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one application",
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
			app, err := api.Applications().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			format, err := rt.OutputFormat()
			if err != nil {
				return &Error{Code: CodeConfigError, Err: err}
			}
			if format == output.FormatTable {
				output.WriteApplicationTable(rt.Writer(), []client.Application{*app})
				return nil
			}
			return output.WriteObject(rt.Writer(), format, app)
		},
	}
}
