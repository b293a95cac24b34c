package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/entrhq/webpilot/pkg/approval"
	"github.com/entrhq/webpilot/pkg/command"
)

// errListingFull stops the workspace walk once the cap is reached
var errListingFull = errors.New("listing full")

func (d *Dispatcher) readFile(dir command.ReadFile) command.Result {
	action := dir.Action()
	if d.guard == nil {
		return command.Failed(action, msgNoWorkspace)
	}

	absPath, err := d.guard.Resolve(dir.Path)
	if err != nil {
		return command.Failed(action, "%v", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return command.Failed(action, "Failed to read file '%s': %v", d.guard.Display(absPath), unwrapPathError(err))
	}
	return command.Succeeded(action, string(content))
}

func (d *Dispatcher) writeFile(ctx context.Context, dir command.WriteFile) command.Result {
	action := dir.Action()
	if d.guard == nil {
		return command.Failed(action, msgNoWorkspace)
	}

	absPath, err := d.guard.Resolve(dir.Path)
	if err != nil {
		return command.Failed(action, "%v", err)
	}
	display := d.guard.Display(absPath)

	var original []byte
	mode := os.FileMode(0644)
	exists := false
	if info, statErr := os.Stat(absPath); statErr == nil {
		if info.IsDir() {
			return command.Failed(action, "'%s' is a directory.", display)
		}
		exists = true
		mode = info.Mode().Perm()
		if original, err = os.ReadFile(absPath); err != nil {
			return command.Failed(action, "Failed to read file '%s': %v", display, unwrapPathError(err))
		}
	}

	if !d.approve(ctx, approval.Request{
		Action:   action,
		Target:   display,
		Question: approval.WriteQuestion(display),
		Detail:   approval.WritePreview(display, string(original), exists, dir.Content),
	}) {
		return command.Failed(action, msgWriteDenied)
	}

	if err := writeFileAtomic(absPath, []byte(dir.Content), mode); err != nil {
		return command.Failed(action, "Failed to write file '%s': %v", display, err)
	}
	return command.Succeeded(action, fmt.Sprintf("File '%s' written successfully.", display))
}

// writeFileAtomic writes through a temporary file in the target directory and
// renames it into place, creating parent directories as needed.
func writeFileAtomic(absPath string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(absPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// workspaceFiles lists workspace files in lexical walk order, skipping
// ignored paths, up to the configured cap.
func (d *Dispatcher) workspaceFiles(ctx context.Context) command.Result {
	action := command.ActionGetWorkspaceFiles
	if d.guard == nil {
		return command.Failed(action, msgNoWorkspace)
	}

	root := d.guard.WorkspaceDir()
	files := make([]string, 0, d.maxFiles)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Skip entries we cannot read
			if entry != nil && entry.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root {
			return nil
		}

		if d.guard.ShouldIgnore(path) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		rel, relErr := d.guard.MakeRelative(path)
		if relErr != nil {
			// Symlinks pointing outside the workspace are not reported
			return nil
		}
		files = append(files, rel)
		if len(files) >= d.maxFiles {
			return errListingFull
		}
		return nil
	})
	if err != nil && !errors.Is(err, errListingFull) {
		return command.Failed(action, "Failed to list workspace files: %v", err)
	}

	return command.Succeeded(action, files)
}

// unwrapPathError drops the absolute path os errors carry so messages only
// mention the workspace-relative path.
func unwrapPathError(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
