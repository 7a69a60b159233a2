package cli

import (
	"flag"
	"fmt"
	"net/http"
)

func newCheckCommand() *Command {
	cmd := &Command{
		Name:        "check",
		Description: "Ask the service whether a user may perform an action on a resource",
		Flags:       flag.NewFlagSet("check", flag.ExitOnError),
	}

	server := cmd.Flags.String("server", "http://localhost:8080", "latticed URL")
	user := cmd.Flags.Int64("user", 0, "Acting user id")
	action := cmd.Flags.String("action", "", "Permission id, e.g. Cards.View")
	kind := cmd.Flags.String("kind", "card", "Resource kind (card, dashboard, integration)")
	resource := cmd.Flags.Int64("resource", 0, "Resource id")
	ownerKind := cmd.Flags.String("owner-kind", "company", "Owner kind (company, group, client)")
	ownerID := cmd.Flags.Int64("owner-id", 0, "Owning company, group, or client id")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *user == 0 || *action == "" || *resource == 0 || *ownerID == 0 {
			return fmt.Errorf("-user, -action, -resource and -owner-id are required")
		}

		owner := map[string]interface{}{"kind": *ownerKind}
		switch *ownerKind {
		case "company":
			owner["company_id"] = *ownerID
		case "group":
			owner["group_id"] = *ownerID
		case "client":
			owner["client_id"] = *ownerID
		default:
			return fmt.Errorf("unknown owner kind %q", *ownerKind)
		}

		client := newAPIClient(*server, *user, false)
		var decision struct {
			Allowed bool `json:"allowed"`
		}
		status, raw, err := client.doJSON("POST", "/v1/decisions", map[string]interface{}{
			"action": *action,
			"resource": map[string]interface{}{
				"kind":  *kind,
				"id":    *resource,
				"owner": owner,
			},
		}, &decision)
		if err != nil {
			return err
		}

		switch status {
		case http.StatusOK:
			fmt.Printf("ALLOW %s on %s %d for user %d\n", *action, *kind, *resource, *user)
		case http.StatusForbidden:
			fmt.Printf("DENY (forbidden) %s on %s %d for user %d\n", *action, *kind, *resource, *user)
		case http.StatusNotFound:
			fmt.Printf("DENY (not found) %s on %s %d for user %d\n", *action, *kind, *resource, *user)
		default:
			return fmt.Errorf("unexpected response %d: %s", status, raw)
		}
		return nil
	}

	return cmd
}
