package cli

import (
	"flag"
	"fmt"
	"net/http"
)

func newPermsCommand() *Command {
	cmd := &Command{
		Name:        "perms",
		Description: "Show a user's effective permissions at a scope",
		Flags:       flag.NewFlagSet("perms", flag.ExitOnError),
	}

	server := cmd.Flags.String("server", "http://localhost:8080", "latticed URL")
	user := cmd.Flags.Int64("user", 0, "User id to inspect")
	clientID := cmd.Flags.Int64("client", 0, "Client id")
	companyID := cmd.Flags.Int64("company", 0, "Company id (optional; omit for client scope)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *user == 0 || *clientID == 0 {
			return fmt.Errorf("-user and -client are required")
		}

		path := fmt.Sprintf("/v1/users/%d/permissions?client_id=%d", *user, *clientID)
		if *companyID > 0 {
			path = fmt.Sprintf("%s&company_id=%d", path, *companyID)
		}

		client := newAPIClient(*server, *user, false)
		var resp struct {
			Scope       string   `json:"scope"`
			Permissions []string `json:"permissions"`
		}
		status, raw, err := client.doJSON("GET", path, nil, &resp)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("unexpected response %d: %s", status, raw)
		}

		fmt.Printf("Effective permissions for user %d at %s:\n", *user, resp.Scope)
		if len(resp.Permissions) == 0 {
			fmt.Println("  (none)")
			return nil
		}
		for _, p := range resp.Permissions {
			fmt.Printf("  %s\n", p)
		}
		return nil
	}

	return cmd
}
