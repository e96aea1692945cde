package chains

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"proxychains-pool/pkg/models"
)

// Editor owns all mutation of one proxychains configuration file. Each
// operation is a transaction: read, backup, transform in memory, write to
// a temp file in the same directory, atomic rename. If any step before
// the rename fails, the target file is untouched.
//
// The editor performs one transaction at a time; concurrent writers from
// other processes are out of scope.
type Editor struct {
	path   string
	logger *slog.Logger
}

func NewEditor(path string, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		path:   path,
		logger: logger,
	}
}

// InstallSingle replaces the proxy-list section content with exactly one
// entry for ep. The active chain strategy is not touched. Calling it
// twice with the same arguments yields the same document as calling it
// once.
func (e *Editor) InstallSingle(ep models.Endpoint, proxyType models.ProxyType) error {
	return e.edit("bak", func(d *document) error {
		return d.setEntries([]string{FormatEntry(ep, proxyType)})
	})
}

// InstallPool activates strategy, deactivates every other known strategy
// directive, and replaces the proxy-list section with one entry per
// endpoint, in the order given.
func (e *Editor) InstallPool(endpoints []models.Endpoint, proxyType models.ProxyType, strategy Strategy) error {
	return e.edit("bak.pool", func(d *document) error {
		if err := d.setStrategy(strategy); err != nil {
			return err
		}
		entries := make([]string, 0, len(endpoints))
		for _, ep := range endpoints {
			entries = append(entries, FormatEntry(ep, proxyType))
		}
		return d.setEntries(entries)
	})
}

func (e *Editor) edit(backupTag string, transform func(*document) error) error {
	info, err := os.Stat(e.path)
	if err != nil {
		return fmt.Errorf("failed to stat config %s: %w", e.path, err)
	}
	mode := info.Mode().Perm()

	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", e.path, err)
	}

	backupPath := fmt.Sprintf("%s.%s.%d", e.path, backupTag, time.Now().Unix())
	if err := os.WriteFile(backupPath, data, mode); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", backupPath, err)
	}
	e.logger.Debug("Wrote config backup", "path", backupPath)

	doc := parseDocument(data)
	if err := transform(doc); err != nil {
		os.Remove(backupPath)
		return err
	}

	// The temp file lives next to the target so the rename stays on one
	// filesystem.
	tmpPath := filepath.Join(filepath.Dir(e.path),
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(e.path), uuid.NewString()))
	if err := os.WriteFile(tmpPath, doc.bytes(), mode); err != nil {
		os.Remove(tmpPath)
		os.Remove(backupPath)
		return fmt.Errorf("failed to write temp config %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, e.path); err != nil {
		os.Remove(tmpPath)
		os.Remove(backupPath)
		return fmt.Errorf("failed to replace config %s: %w", e.path, err)
	}

	e.logger.Debug("Config updated", "path", e.path, "backup", backupPath)
	return nil
}
