//go:build !linux

package finalizer

func renameNoReplace(oldpath, newpath string) error {
	return renameChecked(oldpath, newpath)
}
