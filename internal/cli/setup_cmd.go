package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flare-risk-server/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the lite MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&configPath, "client-config", "", "Client config file (default: platform location)")

	var binaryPath, dataDir string
	client := &cobra.Command{
		Use:   "client",
		Short: "Add or update the flare-risk entry in the client config",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.Configure(setup.Options{
				ConfigPath: configPath,
				BinaryPath: binaryPath,
				DataDir:    dataDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n", setup.ServerName, path)
			fmt.Fprintln(cmd.OutOrStdout(), styleDim.Render("Restart the client to load the server."))
			return nil
		},
	}
	client.Flags().StringVar(&binaryPath, "binary", "", "Path to "+setup.BinaryName+" (default: search PATH)")
	client.Flags().StringVar(&dataDir, "data-dir", "", "Data directory for the symptom log")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is registered and ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := setup.GetStatus(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			registered := styleRed.Render("no")
			if st.Configured {
				registered = styleGreen.Render("yes")
			}
			fmt.Fprint(out, renderTable([]string{"SETTING", "VALUE"}, [][]string{
				{"client config", st.ConfigPath},
				{"registered", registered},
				{"server binary", st.ServerPath},
				{"data dir", st.DataDir},
			}))
			for _, issue := range st.Issues {
				fmt.Fprintln(out, styleDim.Render("! "+issue))
			}
			return nil
		},
	}

	cmd.AddCommand(client, status)
	return cmd
}
