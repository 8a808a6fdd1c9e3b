package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kysee/zknote/zk-asset/circuit"
	"github.com/spf13/cobra"
)

var (
	verifierInputs  int
	verifierOutputs int
	verifierOut     string
)

var exportVerifierCmd = &cobra.Command{
	Use:   "export-verifier",
	Short: "Write the Solidity PLONK verifier of a join-split shape",
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifierInputs <= 0 || verifierOutputs < 0 {
			return fmt.Errorf("invalid shape: %d inputs, %d outputs", verifierInputs, verifierOutputs)
		}

		var buf bytes.Buffer
		sys := circuit.NewSystem(logger)
		if err := sys.ExportSolidity(&buf, verifierInputs, verifierOutputs); err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(verifierOut), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(verifierOut, buf.Bytes(), 0o644); err != nil {
			return err
		}

		logger.Info().
			Int("inputs", verifierInputs).
			Int("outputs", verifierOutputs).
			Str("path", verifierOut).
			Msg("solidity verifier generated")
		return nil
	},
}

func init() {
	exportVerifierCmd.Flags().IntVar(&verifierInputs, "inputs", 2, "number of input notes")
	exportVerifierCmd.Flags().IntVar(&verifierOutputs, "outputs", 3, "number of output notes")
	exportVerifierCmd.Flags().StringVarP(&verifierOut, "out", "o", "contracts/PlonkVerifier.sol", "output file")
}
