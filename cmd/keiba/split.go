package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var testFraction float64

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split the labeled table chronologically into train and test tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openDependencies(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		fraction := cfg.Features.TestFraction
		if cmd.Flags().Changed("test-fraction") {
			fraction = testFraction
		}

		train, test, err := deps.featureService().Split(cmd.Context(), fraction)
		if err != nil {
			return err
		}

		appLog.WithFields(logrus.Fields{
			"train_rows": train.Len(),
			"test_rows":  test.Len(),
		}).Info("Split complete")
		return nil
	},
}

func init() {
	splitCmd.Flags().Float64Var(&testFraction, "test-fraction", 0.3, "Fraction of race dates held out for testing")
}
