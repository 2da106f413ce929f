package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scenesmith/internal/types"
)

// CreateProject inserts a new project.
func (s *Store) CreateProject(p types.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// CreateScene inserts a newly authored scene. The compiled fields start
// empty; only pipeline runs mutate them.
func (s *Store) CreateScene(sc types.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO scenes (id, project_id, ord, name, source_code) VALUES (?, ?, ?, ?, ?)`,
		sc.ID, sc.ProjectID, sc.Order, sc.Name, sc.SourceCode,
	)
	if err != nil {
		return fmt.Errorf("create scene: %w", err)
	}
	return nil
}

// GetScene loads one scene.
func (s *Store) GetScene(id string) (types.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(
		`SELECT id, project_id, ord, name, source_code, compiled_code, compiled_at, compilation_error
		 FROM scenes WHERE id = ?`, id)
	return scanScene(row)
}

// ListProjectScenes returns the project's scenes in order-index order —
// the consistent sibling snapshot the conflict resolver works against.
func (s *Store) ListProjectScenes(projectID string) ([]types.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(
		`SELECT id, project_id, ord, name, source_code, compiled_code, compiled_at, compilation_error
		 FROM scenes WHERE project_id = ? ORDER BY ord ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []types.Scene
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}

// DeleteScene removes a scene and its artifact.
func (s *Store) DeleteScene(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	return nil
}

// UpdateSceneSource replaces a scene's source and clears the compiled
// fields in the same statement. A stale artifact must never outlive a
// source edit, so invalidation is not a separate step that could be missed.
func (s *Store) UpdateSceneSource(id, sourceCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE scenes
		 SET source_code = ?, compiled_code = '', compiled_at = NULL, compilation_error = ''
		 WHERE id = ?`, sourceCode, id)
	if err != nil {
		return fmt.Errorf("update scene source: %w", err)
	}
	return requireRow(res)
}

// SaveCompilation records a pipeline result for a scene, guarded by the
// exact source the pipeline compiled. If the stored source has moved on in
// the meantime the write is rejected with ErrStaleSource and nothing is
// retained.
func (s *Store) SaveCompilation(id, forSource, compiledCode string, compiledAt time.Time, compilationError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE scenes
		 SET compiled_code = ?, compiled_at = ?, compilation_error = ?
		 WHERE id = ? AND source_code = ?`,
		compiledCode, compiledAt, compilationError, id, forSource)
	if err != nil {
		return fmt.Errorf("save compilation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing scene from a source race.
		var exists int
		if err := s.db.QueryRow(`SELECT 1 FROM scenes WHERE id = ?`, id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return ErrStaleSource
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (types.Scene, error) {
	var sc types.Scene
	var compiledAt sql.NullTime
	err := row.Scan(&sc.ID, &sc.ProjectID, &sc.Order, &sc.Name,
		&sc.SourceCode, &sc.CompiledCode, &compiledAt, &sc.CompilationError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Scene{}, ErrNotFound
		}
		return types.Scene{}, fmt.Errorf("scan scene: %w", err)
	}
	if compiledAt.Valid {
		sc.CompiledAt = compiledAt.Time
	}
	return sc, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
