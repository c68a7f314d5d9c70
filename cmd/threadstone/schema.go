package main

import (
	"os"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/result"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the result record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := result.Schema()
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.WriteFile(output, data, outputPerm); err != nil {
				return errors.New().Wrap(errors.ErrOperationFailed, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the schema to this file")

	return cmd
}
