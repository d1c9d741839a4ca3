package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arliden/comfygraph"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <image.png>",
	Short: "Register an input image with the server",
	Long: `Uploads an image so a workflow can reference it by name from an image-loading
node. Prints the server-assigned name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		client, err := comfygraph.New(serverURL(cfg), comfygraph.WithLogger(logger()))
		if err != nil {
			return err
		}
		uploaded, err := client.UploadImage(cmd.Context(), filepath.Base(args[0]), data)
		if err != nil {
			return err
		}
		fmt.Println(uploaded.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
