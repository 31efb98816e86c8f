package testutil

import (
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
)

// Tree lists every entry below root, relative to it and sorted. Directories
// carry a trailing slash.
func Tree(fs billy.Filesystem, root string) ([]string, error) {
	var out []string
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		entries, err := fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			p := path.Join(rel, e.Name())
			if e.IsDir() {
				out = append(out, p+"/")
				if err := walk(path.Join(dir, e.Name()), p); err != nil {
					return err
				}
				continue
			}
			out = append(out, p)
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
