package cli

import (
	"context"
	"errors"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// errImportFailed makes the process exit non-zero after the report printed.
var errImportFailed = errors.New("import did not complete successfully")

// userError prefixes err with its user message and code, as the web layer
// shows them.
func userError(err error) error {
	if err == nil {
		return nil
	}
	msg := core.MapError(err)
	if msg.Code == "ERR000" {
		return err
	}
	if msg.Action != "" {
		return fmt.Errorf("%s [%s]. %s: %w", msg.Message, msg.Code, msg.Action, err)
	}
	return fmt.Errorf("%s [%s]: %w", msg.Message, msg.Code, err)
}

// actorContext records the local user as the actor of CLI runs.
func actorContext(cmd *cobra.Command) context.Context {
	actor := "cli"
	if u, err := user.Current(); err == nil && u.Username != "" {
		actor = "cli:" + u.Username
	}
	return core.ContextWithActor(cmd.Context(), actor)
}
