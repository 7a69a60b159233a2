package cli

import (
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func newGrantCommand() *Command {
	cmd := &Command{
		Name:        "grant",
		Description: "Assign a role to a user at a client or company scope",
		Flags:       flag.NewFlagSet("grant", flag.ExitOnError),
	}

	server := cmd.Flags.String("server", "http://localhost:8080", "latticed URL")
	actor := cmd.Flags.Int64("as", 0, "Acting admin user id")
	user := cmd.Flags.Int64("user", 0, "User to grant the role to")
	role := cmd.Flags.Int64("role", 0, "Role id")
	clientID := cmd.Flags.Int64("client", 0, "Client scope (mutually exclusive with -company)")
	companyID := cmd.Flags.Int64("company", 0, "Company scope (mutually exclusive with -client)")
	companies := cmd.Flags.String("companies", "", "Comma-separated company ids narrowing a client grant")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *actor == 0 || *user == 0 || *role == 0 {
			return fmt.Errorf("-as, -user and -role are required")
		}
		if (*clientID == 0) == (*companyID == 0) {
			return fmt.Errorf("exactly one of -client and -company is required")
		}

		body := map[string]interface{}{
			"user_id": *user,
			"role_id": *role,
		}
		if *clientID > 0 {
			body["client_id"] = *clientID
		} else {
			body["profile_id"] = *companyID
		}
		if *companies != "" {
			ids, err := parseIDList(*companies)
			if err != nil {
				return err
			}
			body["company_ids"] = ids
		}

		client := newAPIClient(*server, *actor, true)
		var grant struct {
			ID int64 `json:"id"`
		}
		status, raw, err := client.doJSON("POST", "/v1/grants/users", body, &grant)
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			return fmt.Errorf("grant rejected (%d): %s", status, raw)
		}

		fmt.Printf("Granted role %d to user %d (grant id %d)\n", *role, *user, grant.ID)
		return nil
	}

	return cmd
}

func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
