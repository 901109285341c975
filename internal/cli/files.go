package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/payload"
)

// readPayload decodes the payload at path, or stdin for "-". An unreadable
// file is a command error; a bad document is an operation failure.
func readPayload(cmd *cobra.Command, path string) (*payload.Payload, error) {
	if path == "-" {
		p, err := payload.Decode(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitFailure, "invalid payload on stdin", err)
		}
		return p, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open payload", err)
	}
	defer f.Close()

	p, err := payload.Decode(f)
	if err != nil {
		return nil, WrapExitError(ExitFailure, fmt.Sprintf("invalid payload %s", path), err)
	}
	return p, nil
}

// writePayload writes p to path atomically: the document is written to a
// temporary file in the same directory and renamed into place, so readers
// never observe a partial export.
func writePayload(path string, p *payload.Payload) error {
	data, err := payload.Marshal(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".keepsake-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
