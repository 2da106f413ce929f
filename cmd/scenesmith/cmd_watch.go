package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenesmith/internal/pipeline"
	"scenesmith/internal/types"
)

var watchOutDir string

// watchCmd recompiles a directory of scene files whenever one changes. All
// *.scene.go files in the directory form one project; name order is the
// order index.
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a scene directory and recompile on change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		pipe := pipeline.New(
			pipeline.WithLogger(logger),
			pipeline.WithMaxSourceBytes(cfg.Pipeline.MaxSourceBytes),
			pipeline.WithValidateOptions(pipeline.ValidateOptions{
				Dynamic: cfg.Pipeline.DynamicValidation,
				Timeout: validateTimeout(),
			}),
		)

		logger.Info("watching scene directory", zap.String("dir", dir))
		if err := compileDir(cmd.Context(), pipe, dir); err != nil {
			logger.Warn("initial compile failed", zap.Error(err))
		}

		// Editors fire bursts of writes; a short debounce coalesces them.
		var pending <-chan time.Time
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !strings.HasSuffix(event.Name, ".scene.go") {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				pending = time.After(200 * time.Millisecond)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Error("watcher error", zap.Error(err))
			case <-pending:
				pending = nil
				if err := compileDir(cmd.Context(), pipe, dir); err != nil {
					logger.Warn("recompile failed", zap.Error(err))
				}
			}
		}
	},
}

// compileDir compiles every scene in the directory against the full sibling
// snapshot, writing artifacts next to the sources (or into --out).
func compileDir(ctx context.Context, pipe *pipeline.Pipeline, dir string) error {
	files, err := sortedSceneFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	siblings := make([]types.SiblingScene, 0, len(files))
	sources := make(map[string]string, len(files))
	for i, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		id := sceneIDFromPath(path)
		sources[id] = string(src)
		siblings = append(siblings, types.SiblingScene{
			ID: id, Name: id, Order: i + 1, SourceCode: string(src),
		})
	}

	outDir := watchOutDir
	if outDir == "" {
		outDir = dir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	for _, sib := range siblings {
		result := pipe.CompileScene(ctx, sources[sib.ID], pipeline.SceneContextInfo{
			SceneID:   sib.ID,
			ProjectID: dir,
			SceneName: sib.Name,
			Siblings:  siblings,
		})
		target := filepath.Join(outDir, sib.ID+".artifact.go")
		if err := os.WriteFile(target, []byte(result.Code), 0644); err != nil {
			return err
		}
		if result.Success {
			logger.Info("scene compiled", zap.String("scene", sib.ID))
		} else {
			logger.Warn("scene fell back",
				zap.String("scene", sib.ID),
				zap.String("error", result.CompilationError))
		}
	}
	return nil
}

func init() {
	watchCmd.Flags().StringVar(&watchOutDir, "out", "", "artifact output directory (default: alongside sources)")
	rootCmd.AddCommand(watchCmd)
}
