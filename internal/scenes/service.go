// Package scenes ties the synchronous pipeline to persisted projects: it
// loads the scene and its sibling snapshot, compiles, and stores the result
// under the no-stale-artifact guarantee.
package scenes

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"scenesmith/internal/pipeline"
	"scenesmith/internal/store"
	"scenesmith/internal/types"
)

// Service compiles stored scenes.
type Service struct {
	store  *store.Store
	pipe   *pipeline.Pipeline
	logger *zap.Logger
}

// New assembles the service. The pipeline should run in inline mode; the
// persisted-artifact form belongs to the asynchronous path.
func New(st *store.Store, pipe *pipeline.Pipeline, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, pipe: pipe, logger: logger}
}

// Compile runs the full pipeline for one stored scene against the current
// sibling snapshot of its project and persists the outcome. The artifact is
// written only if the scene's source is still the source that was compiled;
// a concurrent edit wins and leaves the scene invalidated for a recompile.
func (s *Service) Compile(ctx context.Context, sceneID string) (pipeline.Result, error) {
	scene, err := s.store.GetScene(sceneID)
	if err != nil {
		return pipeline.Result{}, err
	}
	siblings, err := s.store.ListProjectScenes(scene.ProjectID)
	if err != nil {
		return pipeline.Result{}, err
	}

	info := pipeline.SceneContextInfo{
		SceneID:   scene.ID,
		ProjectID: scene.ProjectID,
		SceneName: scene.Name,
		Siblings:  make([]types.SiblingScene, 0, len(siblings)),
	}
	for _, sib := range siblings {
		info.Siblings = append(info.Siblings, types.SiblingScene{
			ID:         sib.ID,
			Name:       sib.Name,
			Order:      sib.Order,
			SourceCode: sib.SourceCode,
		})
	}

	result := s.pipe.CompileScene(ctx, scene.SourceCode, info)

	err = s.store.SaveCompilation(scene.ID, scene.SourceCode, result.Code, result.CompiledAt, result.CompilationError)
	if errors.Is(err, store.ErrStaleSource) {
		// The source changed while we compiled. The fresh artifact belongs
		// to an old source, so it is discarded; the caller still gets the
		// result for display, just not persisted.
		s.logger.Info("compilation discarded, source edited mid-flight",
			zap.String("scene", scene.ID))
		return result, nil
	}
	if err != nil {
		return result, err
	}
	return result, nil
}
