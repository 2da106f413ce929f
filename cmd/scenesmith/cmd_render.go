package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"scenesmith/internal/motion"
	"scenesmith/internal/runtime"
)

var (
	renderFrame  int
	renderWidth  int
	renderHeight int
	renderFPS    int
)

// renderCmd loads every artifact of a directory into one shared host session
// and prints each scene's node tree at the requested frame. It is a smoke
// view of the shared-namespace composition, not a video exporter.
var renderCmd = &cobra.Command{
	Use:   "render <dir>",
	Short: "Load compiled artifacts into one shared session and print a frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(args[0])
		if err != nil {
			return err
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".artifact.go") {
				files = append(files, filepath.Join(args[0], e.Name()))
			}
		}
		sort.Strings(files)
		if len(files) == 0 {
			return fmt.Errorf("no artifacts in %s", args[0])
		}

		host, err := runtime.NewHost()
		if err != nil {
			return err
		}
		for _, path := range files {
			artifact, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			id := strings.TrimSuffix(filepath.Base(path), ".artifact.go")
			if err := host.LoadArtifact(cmd.Context(), id, string(artifact)); err != nil {
				return err
			}
		}

		sc := &motion.SceneContext{
			Frame:            renderFrame,
			DurationInFrames: 150,
			FPS:              renderFPS,
			Width:            renderWidth,
			Height:           renderHeight,
		}
		for _, id := range host.Scenes() {
			node, err := host.RenderFrame(id, sc)
			if err != nil {
				fmt.Printf("%s: render error: %v\n", id, err)
				continue
			}
			fmt.Printf("%s:\n", id)
			printNode(node, 1)
		}
		return nil
	},
}

func printNode(n motion.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s %v\n", indent, n.Kind, n.Props)
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}

func init() {
	renderCmd.Flags().IntVar(&renderFrame, "frame", 0, "frame to evaluate")
	renderCmd.Flags().IntVar(&renderWidth, "width", 1920, "canvas width")
	renderCmd.Flags().IntVar(&renderHeight, "height", 1080, "canvas height")
	renderCmd.Flags().IntVar(&renderFPS, "fps", 30, "frames per second")
	rootCmd.AddCommand(renderCmd)
}
