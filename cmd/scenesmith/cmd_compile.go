package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scenesmith/internal/pipeline"
	"scenesmith/internal/types"
)

var (
	compileOut      string
	compileSiblings []string
	compileJSON     bool
)

// compileCmd runs the synchronous pipeline over a scene file. Sibling files
// given with --sibling join the shared-namespace snapshot in argument order.
var compileCmd = &cobra.Command{
	Use:   "compile <scene-file>",
	Short: "Compile one scene source file into an artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		info := pipeline.SceneContextInfo{
			SceneID:   sceneIDFromPath(args[0]),
			ProjectID: filepath.Dir(args[0]),
			SceneName: sceneIDFromPath(args[0]),
		}
		for i, path := range compileSiblings {
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read sibling: %w", err)
			}
			info.Siblings = append(info.Siblings, types.SiblingScene{
				ID:         sceneIDFromPath(path),
				Name:       sceneIDFromPath(path),
				Order:      i + 1,
				SourceCode: string(src),
			})
		}
		if len(info.Siblings) > 0 {
			info.Siblings = append(info.Siblings, types.SiblingScene{
				ID:         info.SceneID,
				Name:       info.SceneName,
				Order:      len(info.Siblings) + 1,
				SourceCode: string(source),
			})
		}

		pipe := pipeline.New(
			pipeline.WithLogger(logger),
			pipeline.WithMaxSourceBytes(cfg.Pipeline.MaxSourceBytes),
			pipeline.WithValidateOptions(pipeline.ValidateOptions{
				Dynamic: cfg.Pipeline.DynamicValidation,
				Timeout: validateTimeout(),
			}),
		)
		result := pipe.CompileScene(cmd.Context(), string(source), info)

		if compileJSON {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"success":           result.Success,
				"compiled_at":       result.CompiledAt,
				"compilation_error": result.CompilationError,
				"conflicts":         result.Conflicts,
				"repairs":           result.Repairs,
			})
		}

		if compileOut != "" {
			if err := os.WriteFile(compileOut, []byte(result.Code), 0644); err != nil {
				return err
			}
		} else {
			fmt.Print(result.Code)
		}

		if !result.Success {
			fmt.Fprintf(os.Stderr, "compilation failed: %s (fallback artifact emitted)\n", result.CompilationError)
		}
		for _, rn := range result.Conflicts {
			fmt.Fprintf(os.Stderr, "renamed %s -> %s in scene %s\n", rn.From, rn.To, rn.SceneID)
		}
		return nil
	},
}

func sceneIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(base, ".go"), ".scene")
}

func validateTimeout() time.Duration {
	d, err := time.ParseDuration(cfg.Pipeline.ValidateTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// sortedSceneFiles lists *.scene.go files in a directory in name order, the
// order index convention for file-based projects.
func sortedSceneFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".scene.go") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "write artifact to file instead of stdout")
	compileCmd.Flags().StringArrayVar(&compileSiblings, "sibling", nil, "sibling scene file (repeatable, order = order index)")
	compileCmd.Flags().BoolVar(&compileJSON, "json", false, "print structured result as JSON")
	rootCmd.AddCommand(compileCmd)
}
