package cli

import (
	"fmt"

	"mediabot/internal/search"

	"github.com/spf13/cobra"
)

var (
	ingestName    string
	ingestCaption string
	ingestMime    string
	ingestRef     string
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest <file-id>",
		Short: "Index a media document by hand",
		Long: `Index a media document by hand. The file reference is what the bot
sends back on delivery; for Telegram it is the file_id.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}
	cmd.Flags().StringVarP(&ingestName, "name", "n", "", "File name")
	cmd.Flags().StringVarP(&ingestCaption, "caption", "c", "", "Caption")
	cmd.Flags().StringVar(&ingestMime, "mime", "video/mp4", "MIME type")
	cmd.Flags().StringVar(&ingestRef, "ref", "", "File reference used for delivery")
	cmd.MarkFlagRequired("name")
	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	doc := search.Document{
		ID:            args[0],
		FileReference: []byte(ingestRef),
		MimeType:      ingestMime,
		Caption:       ingestCaption,
		FileName:      ingestName,
	}
	if err := a.svc.Ingest(cmd.Context(), search.Caller{Admin: true}, doc); err != nil {
		return fmt.Errorf("ingest %s: %w", args[0], err)
	}
	return output(cmd.OutOrStdout(), map[string]string{"status": "stored", "id": doc.ID}, "stored "+doc.ID)
}
