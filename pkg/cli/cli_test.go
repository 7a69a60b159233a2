package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCommand_Allow(t *testing.T) {
	var gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1/decisions", r.URL.Path)
		gotUser = r.Header.Get("X-Lattice-User-Id")

		var req struct {
			Action   string `json:"action"`
			Resource struct {
				Kind  string `json:"kind"`
				ID    int64  `json:"id"`
				Owner struct {
					Kind      string `json:"kind"`
					CompanyID int64  `json:"company_id"`
				} `json:"owner"`
			} `json:"resource"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Cards.View", req.Action)
		assert.Equal(t, int64(7), req.Resource.Owner.CompanyID)

		json.NewEncoder(w).Encode(map[string]interface{}{"allowed": true, "action": req.Action})
	}))
	defer server.Close()

	cmd := newCheckCommand()
	err := cmd.Run([]string{
		"-server", server.URL,
		"-user", "3",
		"-action", "Cards.View",
		"-resource", "100",
		"-owner-id", "7",
	})
	require.NoError(t, err)
	assert.Equal(t, "3", gotUser)
}

func TestCheckCommand_DenyStatusesAreNotErrors(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		cmd := newCheckCommand()
		err := cmd.Run([]string{
			"-server", server.URL,
			"-user", "3",
			"-action", "Cards.View",
			"-resource", "100",
			"-owner-id", "7",
		})
		assert.NoError(t, err, "status %d is a valid answer, not a failure", status)
		server.Close()
	}
}

func TestCheckCommand_MissingFlags(t *testing.T) {
	cmd := newCheckCommand()
	err := cmd.Run([]string{"-user", "3"})
	assert.Error(t, err)
}

func TestPermsCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/users/3/permissions", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("client_id"))
		require.Equal(t, "2", r.URL.Query().Get("company_id"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"scope":       "client 1 / company 2",
			"permissions": []string{"Cards.View"},
		})
	}))
	defer server.Close()

	cmd := newPermsCommand()
	err := cmd.Run([]string{"-server", server.URL, "-user", "3", "-client", "1", "-company", "2"})
	require.NoError(t, err)
}

func TestGrantCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/grants/users", r.URL.Path)
		require.Equal(t, "true", r.Header.Get("X-Lattice-Platform-Admin"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 9, req["role_id"])
		assert.EqualValues(t, 2, req["profile_id"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]int64{"id": 11})
	}))
	defer server.Close()

	cmd := newGrantCommand()
	err := cmd.Run([]string{"-server", server.URL, "-as", "1", "-user", "3", "-role", "9", "-company", "2"})
	require.NoError(t, err)
}

func TestGrantCommand_RequiresExactlyOneScope(t *testing.T) {
	cmd := newGrantCommand()
	err := cmd.Run([]string{"-as", "1", "-user", "3", "-role", "9", "-client", "1", "-company", "2"})
	assert.Error(t, err)

	cmd = newGrantCommand()
	err = cmd.Run([]string{"-as", "1", "-user", "3", "-role", "9"})
	assert.Error(t, err)
}

func TestShareCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/shares", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dashboard", req["target_kind"])
		assert.Equal(t, "edit", req["level"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]int64{"id": 4})
	}))
	defer server.Close()

	cmd := newShareCommand()
	err := cmd.Run([]string{"-server", server.URL, "-as", "1", "-kind", "dashboard", "-target", "7", "-subject", "3", "-level", "edit"})
	require.NoError(t, err)
}

func TestShareCommand_RejectionSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "level must be view or edit", http.StatusBadRequest)
	}))
	defer server.Close()

	cmd := newShareCommand()
	err := cmd.Run([]string{"-server", server.URL, "-as", "1", "-target", "7", "-subject", "3", "-level", "admin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level must be view or edit")
}

func TestRootCommand_UnknownSubcommand(t *testing.T) {
	root := NewRootCommand()
	_, ok := root.Subcommands["check"]
	assert.True(t, ok)
	_, ok = root.Subcommands["nope"]
	assert.False(t, ok)
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDList("1,x")
	assert.Error(t, err)
}
