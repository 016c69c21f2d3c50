package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/clinic-ingest/internal/ingest"
)

var verifyBy string

var verifyCmd = &cobra.Command{
	Use:   "verify <id,id,...>",
	Short: "Mark clinics as verified",
	Long:  "Sets the verified flag on each listed clinic, records who verified it and clears its needs-review tag.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("verify"); err != nil {
			return err
		}
		ids := ingest.ParseIDs(args[0])
		if len(ids) == 0 {
			return eris.New("verify: no ids given")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		retry := time.Duration(cfg.Import.StoreRetryDelayMs) * time.Millisecond
		res, err := ingest.NewVerifier(st, cfg.Store.WriteBatchSize, retry).Verify(ctx, ids, verifyBy)
		if res != nil {
			formatRunSummary(os.Stdout, res.Snapshot())
		}
		if err != nil {
			return err
		}
		if !res.Success {
			return eris.Errorf("verify: %d id(s) failed", res.Failed)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyBy, "by", ingest.DefaultVerifiedBy, "label recorded as the verifier")
	rootCmd.AddCommand(verifyCmd)
}
