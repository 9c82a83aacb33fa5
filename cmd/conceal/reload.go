/*
DESCRIPTION
  reload.go provides loading of key=value configuration files and watching
  them for changes so that concealment settings can be altered while a
  simulation runs.

AUTHORS
  The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

// readVars parses lines of the form key=value. Blank lines and lines starting
// with # are ignored; surrounding space is trimmed.
func readVars(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		l := strings.TrimSpace(sc.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		k, v, ok := strings.Cut(l, "=")
		if !ok {
			return nil, errors.Errorf("line %d: expected key=value", line)
		}
		vars[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return vars, errors.Wrap(sc.Err(), "could not scan config")
}

func loadVars(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open config")
	}
	defer f.Close()
	return readVars(f)
}

// watch returns a channel that receives the variables of the file at path
// each time it is written. The directory is watched so that files replaced
// by editors are still seen. Watching stops when ctx is done.
func watch(ctx context.Context, path string, l logging.Logger) (<-chan map[string]string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "could not create watcher")
	}
	path = filepath.Clean(path)
	err = w.Add(filepath.Dir(path))
	if err != nil {
		w.Close()
		return nil, errors.Wrap(err, "could not watch config directory")
	}

	// Only the latest unapplied change is kept.
	c := make(chan map[string]string, 1)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.Warning("config watch error", "error", err.Error())
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				vars, err := loadVars(path)
				if err != nil {
					l.Warning("could not reload config", "error", err.Error())
					continue
				}
				l.Debug("config changed", "path", path, "vars", len(vars))
				select {
				case <-c:
				default:
				}
				c <- vars
			}
		}
	}()
	return c, nil
}
