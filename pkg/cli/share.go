package cli

import (
	"flag"
	"fmt"
	"net/http"
)

func newShareCommand() *Command {
	cmd := &Command{
		Name:        "share",
		Description: "Share a card or dashboard with a user or group",
		Flags:       flag.NewFlagSet("share", flag.ExitOnError),
	}

	server := cmd.Flags.String("server", "http://localhost:8080", "latticed URL")
	actor := cmd.Flags.Int64("as", 0, "Acting user id")
	kind := cmd.Flags.String("kind", "card", "Target kind (card or dashboard)")
	target := cmd.Flags.Int64("target", 0, "Target resource id")
	subjectKind := cmd.Flags.String("subject-kind", "user", "Subject kind (user or group)")
	subject := cmd.Flags.Int64("subject", 0, "Subject id")
	level := cmd.Flags.String("level", "view", "Access level (view or edit)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *actor == 0 || *target == 0 || *subject == 0 {
			return fmt.Errorf("-as, -target and -subject are required")
		}

		client := newAPIClient(*server, *actor, false)
		var share struct {
			ID int64 `json:"id"`
		}
		status, raw, err := client.doJSON("POST", "/v1/shares", map[string]interface{}{
			"target_kind":  *kind,
			"target_id":    *target,
			"subject_kind": *subjectKind,
			"subject_id":   *subject,
			"level":        *level,
		}, &share)
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			return fmt.Errorf("share rejected (%d): %s", status, raw)
		}

		fmt.Printf("Shared %s %d with %s %d at %s (share id %d)\n", *kind, *target, *subjectKind, *subject, *level, share.ID)
		return nil
	}

	return cmd
}
