package cmds

import (
	"io"

	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := LoadSettings(viper.GetString("config"))
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), s)
		},
	}
}

func writeSettings(w io.Writer, s *settings.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.Redacted()); err != nil {
		return errors.Wrap(err, "could not encode settings")
	}
	return enc.Close()
}
