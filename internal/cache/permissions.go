package cache

import (
	"io/fs"
	"os"
	"path/filepath"
)

// NormalizePermissions makes every file under root at least world-readable
// and every directory world-readable and traversable. The cache transport
// refuses entries it cannot read back, so this runs before every persist.
// Symlinks are left alone.
func NormalizePermissions(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mode := info.Mode().Perm()
		want := mode | 0o444
		if d.IsDir() {
			want |= 0o111
		}
		if want == mode {
			return nil
		}
		return os.Chmod(p, want)
	})
}
