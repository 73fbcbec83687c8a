package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopfront/shopctl/internal/client"
	"github.com/shopfront/shopctl/pkg/output"
)

var imagesCmd = &cobra.Command{
	Use:     "images",
	Aliases: []string{"image"},
	Short:   "Product and profile images",
	Long: `Upload and download images. IDs are product IDs unless --user is given,
in which case they are user IDs and the profile picture is used.`,
}

var imagesUploadCmd = &cobra.Command{
	Use:   "upload [id] [file]",
	Short: "Upload an image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetBool("user")
		id, err := parseID(args[0], imageOwner(user))
		if err != nil {
			return err
		}

		upload, err := client.UploadFromFile(args[1])
		if err != nil {
			return err
		}

		images := client.NewImageClient(newAPIClient(cmd))
		var msg string
		if user {
			msg, err = images.UploadUserImage(cmd.Context(), id, upload)
		} else {
			msg, err = images.UploadProductImage(cmd.Context(), id, upload)
		}
		if err != nil {
			return fmt.Errorf("failed to upload image: %w", err)
		}

		if msg == "" {
			msg = fmt.Sprintf("Image uploaded for %s %d", imageOwner(user), id)
		}
		output.Success("%s", msg)
		return nil
	},
}

var imagesDownloadCmd = &cobra.Command{
	Use:   "download [id]",
	Short: "Download an image",
	Long:  "Download an image to --file, or write it to stdout when no file is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetBool("user")
		id, err := parseID(args[0], imageOwner(user))
		if err != nil {
			return err
		}

		images := client.NewImageClient(newAPIClient(cmd))
		var img *client.Image
		if user {
			img, err = images.UserImage(cmd.Context(), id)
		} else {
			img, err = images.ProductImage(cmd.Context(), id)
		}
		if err != nil {
			return fmt.Errorf("failed to download image: %w", err)
		}

		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return output.Raw(img.Data)
		}

		if err := os.WriteFile(file, img.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
		output.Success("Saved %s (%s, %d bytes)", file, img.ContentType, len(img.Data))
		return nil
	},
}

var imagesURLCmd = &cobra.Command{
	Use:   "url [product-id]",
	Short: "Print the direct link to a product image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "product")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), client.NewImageClient(newAPIClient(cmd)).ProductImageURL(id))
		return nil
	},
}

func imageOwner(user bool) string {
	if user {
		return "user"
	}
	return "product"
}

func init() {
	rootCmd.AddCommand(imagesCmd)
	imagesCmd.AddCommand(imagesUploadCmd)
	imagesCmd.AddCommand(imagesDownloadCmd)
	imagesCmd.AddCommand(imagesURLCmd)

	imagesUploadCmd.Flags().Bool("user", false, "Treat the ID as a user ID (profile picture)")
	imagesDownloadCmd.Flags().Bool("user", false, "Treat the ID as a user ID (profile picture)")
	imagesDownloadCmd.Flags().StringP("file", "f", "", "Write the image to this file")
}
