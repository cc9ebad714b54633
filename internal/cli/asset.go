package cli

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vietddude/tourdesk/internal/upload"
)

var (
	assetKind  string
	assetOwner string
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage stored assets",
}

var assetUploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload an image or attach a document",
	Long:  `Upload an image, or attach a document to an owner record when --kind=document.`,
	Args:  cobra.ExactArgs(1),
	Run:   runAssetUpload,
}

func init() {
	assetUploadCmd.Flags().StringVar(&assetKind, "kind", string(upload.KindImage), "asset kind (image or document)")
	assetUploadCmd.Flags().StringVar(&assetOwner, "owner", "", "owning record id for documents")

	assetCmd.AddCommand(assetUploadCmd)
	rootCmd.AddCommand(assetCmd)
}

func runAssetUpload(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()

	kind := upload.Kind(assetKind)
	if kind != upload.KindImage && kind != upload.KindDocument {
		fail(nil, "Invalid --kind", fmt.Errorf("unknown asset kind %q", assetKind))
	}

	asset, err := readAsset(args[0])
	if err != nil {
		fail(nil, "Failed to read file", err)
	}

	app := openApp(ctx, cfg)
	defer app.Close()

	selection := &upload.Selection{}
	selection.Select(asset, args[0])

	if kind == upload.KindDocument && assetOwner != "" {
		doc, err := app.Trips.AttachDocument(ctx, assetOwner, asset, selection)
		if err != nil {
			fail(app, "Upload failed", err)
		}
		fmt.Printf("Attached %s to %s\n%s\n", doc.Asset.DisplayName, doc.OwnerID, doc.Asset.Locator)
		return
	}

	ref, err := app.Uploads.Upload(ctx, asset, kind, assetOwner, selection)
	if err != nil {
		fail(app, "Upload failed", err)
	}
	fmt.Println(ref.Locator)
}

// readAsset loads a local file, taking its media type from the extension
// and falling back to content sniffing.
func readAsset(path string) (upload.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return upload.Asset{}, err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return upload.Asset{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}
