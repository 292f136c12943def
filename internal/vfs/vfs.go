// Package vfs implements the durable virtual file store. Writes emit file
// lifecycle events consumed by the orchestrator's reactive hooks.
package vfs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slokhande/dataos/internal/events"
)

// ErrNotFound is returned when a path has no node.
var ErrNotFound = errors.New("file not found")

// Node is one entry of the file tree.
type Node struct {
	Path       string
	Name       string
	ParentPath string
	Type       string // file or directory
	Size       int
	ProjectID  int64
	CreatedAt  string
	UpdatedAt  string
}

// Store persists file nodes and publishes file events.
type Store struct {
	db  *sql.DB
	bus *events.Bus
}

// NewStore creates a file store over the metadata database.
func NewStore(db *sql.DB, bus *events.Bus) *Store {
	return &Store{db: db, bus: bus}
}

// Bootstrap seeds the default directory structure on first start.
func (s *Store) Bootstrap(ctx context.Context) error {
	exists, err := s.Exists(ctx, "/home", 0)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	for _, dir := range []string{"/home", "/home/documents", "/home/downloads", "/system", "/system/logs"} {
		if err := s.Mkdir(ctx, dir, 0); err != nil {
			return err
		}
	}
	log.Info().Msg("vfs: bootstrapped")
	return nil
}

// Mkdir creates a directory, recursively creating missing parents.
func (s *Store) Mkdir(ctx context.Context, path string, projectID int64) error {
	path = normalizePath(path)
	exists, err := s.Exists(ctx, path, projectID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	parent := parentPath(path)
	if parent != "/" {
		if err := s.Mkdir(ctx, parent, projectID); err != nil {
			return err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO fs_nodes(path, project_id, name, parent_path, type, size, content, created_at, updated_at)
		VALUES(?, ?, ?, ?, 'directory', 0, NULL, ?, ?)`,
		path, projectID, baseName(path), parent, now, now); err != nil {
		return fmt.Errorf("insert directory: %w", err)
	}
	return nil
}

// WriteFile creates or replaces a file. The parent directory must already
// exist. Publishes FILE_CREATED for new files, FILE_UPDATED for overwrites.
func (s *Store) WriteFile(ctx context.Context, path, content string, projectID int64) error {
	path = normalizePath(path)
	parent := parentPath(path)

	parentExists, err := s.Exists(ctx, parent, projectID)
	if err != nil {
		return err
	}
	if !parentExists {
		return fmt.Errorf("parent directory %s does not exist in project %d", parent, projectID)
	}

	existing, err := s.node(ctx, path, projectID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	size := len(content)

	if existing != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE fs_nodes SET size=?, content=?, updated_at=? WHERE path=? AND project_id=?`,
			size, []byte(content), now, path, projectID); err != nil {
			return fmt.Errorf("update file: %w", err)
		}
		s.bus.Publish(events.FileUpdated, events.FilePayload{Path: path, Size: size, ProjectID: projectID}, "VFS")
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO fs_nodes(path, project_id, name, parent_path, type, size, content, created_at, updated_at)
		VALUES(?, ?, ?, ?, 'file', ?, ?, ?, ?)`,
		path, projectID, baseName(path), parent, size, []byte(content), now, now); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	s.bus.Publish(events.FileCreated, events.FilePayload{Path: path, Size: size, ProjectID: projectID}, "VFS")
	return nil
}

// ReadFile returns the content of a file, or ErrNotFound.
func (s *Store) ReadFile(ctx context.Context, path string, projectID int64) (string, error) {
	path = normalizePath(path)
	row := s.db.QueryRowContext(ctx, `SELECT type, content FROM fs_nodes WHERE path=? AND project_id=?`, path, projectID)

	var nodeType string
	var content sql.NullString
	if err := row.Scan(&nodeType, &content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("read %s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("read file node: %w", err)
	}
	if nodeType != "file" {
		return "", fmt.Errorf("%s is not a file", path)
	}
	return content.String, nil
}

// Exists reports whether a node is present at path.
func (s *Store) Exists(ctx context.Context, path string, projectID int64) (bool, error) {
	_, err := s.node(ctx, normalizePath(path), projectID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the direct children of a directory.
func (s *Store) List(ctx context.Context, path string, projectID int64) ([]Node, error) {
	path = normalizePath(path)
	rows, err := s.db.QueryContext(ctx, `SELECT path, project_id, name, parent_path, type, size, created_at, updated_at
		FROM fs_nodes WHERE parent_path=? AND project_id=? ORDER BY type, name`, path, projectID)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.Path, &n.ProjectID, &n.Name, &n.ParentPath, &n.Type, &n.Size, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return out, nil
}

// Delete removes a node. Directories are deleted recursively. Deleting a
// missing path is a no-op.
func (s *Store) Delete(ctx context.Context, path string, projectID int64) error {
	path = normalizePath(path)
	node, err := s.node(ctx, path, projectID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if node.Type == "directory" {
		children, err := s.List(ctx, path, projectID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := s.Delete(ctx, child.Path, projectID); err != nil {
				return err
			}
		}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM fs_nodes WHERE path=? AND project_id=?`, path, projectID); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	s.bus.Publish(events.FileDeleted, events.FilePayload{Path: path, ProjectID: projectID}, "VFS")
	return nil
}

func (s *Store) node(ctx context.Context, path string, projectID int64) (*Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path, project_id, name, parent_path, type, size, created_at, updated_at
		FROM fs_nodes WHERE path=? AND project_id=?`, path, projectID)

	var n Node
	if err := row.Scan(&n.Path, &n.ProjectID, &n.Name, &n.ParentPath, &n.Type, &n.Size, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read node: %w", err)
	}
	return &n, nil
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	return strings.TrimSuffix(path, "/")
}

func parentPath(path string) string {
	if path == "/" {
		return "/"
	}
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

func baseName(path string) string {
	if path == "/" {
		return "root"
	}
	idx := strings.LastIndex(path, "/")
	return path[idx+1:]
}
