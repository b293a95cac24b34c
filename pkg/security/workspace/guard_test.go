package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}
	return guard
}

func TestNewGuard(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name         string
		workspaceDir string
		wantErr      bool
	}{
		{
			name:         "valid existing directory",
			workspaceDir: tmpDir,
			wantErr:      false,
		},
		{
			name:         "current directory",
			workspaceDir: ".",
			wantErr:      false,
		},
		{
			name:         "empty directory",
			workspaceDir: "",
			wantErr:      true,
		},
		{
			name:         "non-existent directory",
			workspaceDir: filepath.Join(tmpDir, "does-not-exist"),
			wantErr:      true,
		},
		{
			name:         "regular file",
			workspaceDir: file,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, err := NewGuard(tt.workspaceDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGuard() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && guard.WorkspaceDir() == "" {
				t.Error("NewGuard() created guard with empty workspace directory")
			}
		})
	}
}

func TestGuard_ValidatePath(t *testing.T) {
	guard := newTestGuard(t)

	if err := os.Mkdir(filepath.Join(guard.WorkspaceDir(), "subdir"), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "valid file in workspace", path: "file.txt"},
		{name: "valid file in subdirectory", path: "subdir/file.txt"},
		{name: "new nested directories", path: "a/b/c/file.txt"},
		{name: "workspace root", path: "."},
		{name: "empty path", path: "", wantErr: true},
		{name: "blank path", path: "   ", wantErr: true},
		{name: "parent directory traversal", path: "../outside.txt", wantErr: true},
		{name: "multiple parent traversals", path: "../../outside.txt", wantErr: true},
		{name: "absolute path outside workspace", path: "/etc/passwd", wantErr: true},
		{name: "hidden traversal", path: "subdir/../../outside.txt", wantErr: true},
		{name: "tilde is not expanded", path: "~/file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGuard_Resolve(t *testing.T) {
	guard := newTestGuard(t)
	root := guard.WorkspaceDir()

	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("secrets/\n"), 0644); err != nil {
		t.Fatalf("Failed to write .gitignore: %v", err)
	}
	guard, err := NewGuard(root)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	got, err := guard.Resolve("./docs/../main.go")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if want := filepath.Join(root, "main.go"); got != want {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}

	got, err = guard.Resolve(filepath.Join(root, "abs.txt"))
	if err != nil {
		t.Fatalf("Resolve() absolute path inside workspace: %v", err)
	}
	if want := filepath.Join(root, "abs.txt"); got != want {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}

	if _, err := guard.Resolve("../escape.txt"); !errors.Is(err, ErrOutsideWorkspace) {
		t.Errorf("Resolve() error = %v, want ErrOutsideWorkspace", err)
	}

	if _, err := guard.Resolve(".git/config"); !errors.Is(err, ErrIgnoredPath) {
		t.Errorf("Resolve() error = %v, want ErrIgnoredPath", err)
	}

	if _, err := guard.Resolve("secrets/key.pem"); !errors.Is(err, ErrIgnoredPath) {
		t.Errorf("Resolve() error = %v, want ErrIgnoredPath", err)
	}
}

func TestGuard_IsWithinWorkspace(t *testing.T) {
	guard := newTestGuard(t)
	workspaceDir := guard.WorkspaceDir()

	tests := []struct {
		name    string
		absPath string
		want    bool
	}{
		{name: "workspace root", absPath: workspaceDir, want: true},
		{name: "file in workspace", absPath: filepath.Join(workspaceDir, "file.txt"), want: true},
		{name: "subdirectory in workspace", absPath: filepath.Join(workspaceDir, "subdir", "file.txt"), want: true},
		{name: "parent directory", absPath: filepath.Dir(workspaceDir), want: false},
		{name: "sibling with shared prefix", absPath: workspaceDir + "-other", want: false},
		{name: "root directory", absPath: "/", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guard.IsWithinWorkspace(tt.absPath); got != tt.want {
				t.Errorf("IsWithinWorkspace() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_MakeRelative(t *testing.T) {
	guard := newTestGuard(t)
	workspaceDir := guard.WorkspaceDir()

	tests := []struct {
		name    string
		absPath string
		want    string
		wantErr bool
	}{
		{name: "file in workspace root", absPath: filepath.Join(workspaceDir, "file.txt"), want: "file.txt"},
		{name: "file in subdirectory", absPath: filepath.Join(workspaceDir, "subdir", "file.txt"), want: "subdir/file.txt"},
		{name: "workspace root", absPath: workspaceDir, want: "."},
		{name: "path outside workspace", absPath: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.MakeRelative(tt.absPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("MakeRelative() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("MakeRelative() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_Display(t *testing.T) {
	guard := newTestGuard(t)

	if got := guard.Display(filepath.Join(guard.WorkspaceDir(), "src", "a.go")); got != "src/a.go" {
		t.Errorf("Display() = %v, want src/a.go", got)
	}
	if got := guard.Display("/etc/hosts"); got != "/etc/hosts" {
		t.Errorf("Display() = %v, want /etc/hosts", got)
	}
}

func TestGuard_WorkspaceDir(t *testing.T) {
	tmpDir := t.TempDir()

	// Resolve the tmpDir to account for symlinks (like /tmp -> /private/tmp on macOS)
	resolvedTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("Failed to resolve tmpDir symlinks: %v", err)
	}

	guard, err := NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	if got := guard.WorkspaceDir(); got != resolvedTmpDir {
		t.Errorf("WorkspaceDir() = %v, want %v", got, resolvedTmpDir)
	}
}

// TestGuard_SymlinkSecurity tests that symbolic links are properly evaluated
func TestGuard_SymlinkSecurity(t *testing.T) {
	tmpDir := t.TempDir()
	outsideDir := t.TempDir()

	guard, err := NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	symlinkPath := filepath.Join(tmpDir, "link-to-outside")
	if err := os.Symlink(outsideDir, symlinkPath); err != nil {
		t.Skipf("Cannot create symlink (may need permissions): %v", err)
	}

	if err := guard.ValidatePath("link-to-outside/file.txt"); err == nil {
		t.Error("ValidatePath() should reject symlink pointing outside workspace")
	}
}
