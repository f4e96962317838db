package watcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/chazu/molprint/pkg/logging"
)

// Selector replaces the current selection. *session.Session satisfies it.
type Selector interface {
	SetSelection(names ...string) error
}

// ParseSelection reads primitive names, one per line. Blank lines and
// lines starting with # are ignored; names may also be separated by
// whitespace on one line.
func ParseSelection(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, strings.Fields(line)...)
	}
	return names, sc.Err()
}

// ReadSelection parses the selection file at path. A missing file is an
// empty selection.
func ReadSelection(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSelection(f)
}

// WatchSelection applies path to sel now and after every change. Apply
// errors are logged and passed to onErr (if set); they do not stop the
// watch.
func WatchSelection(fw *FileWatcher, path string, sel Selector, onErr func(error)) error {
	apply := func(p string) {
		err := applySelection(p, sel)
		if err == nil {
			fw.log.Info("selection reloaded", logging.Path(p))
			return
		}
		fw.log.Warn("selection reload failed", logging.Path(p), logging.Error(err))
		if onErr != nil {
			onErr(err)
		}
	}
	if err := applySelection(path, sel); err != nil {
		return err
	}
	return fw.Watch([]string{path}, apply)
}

func applySelection(path string, sel Selector) error {
	names, err := ReadSelection(path)
	if err != nil {
		return fmt.Errorf("read selection: %w", err)
	}
	return sel.SetSelection(names...)
}
