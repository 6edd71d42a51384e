package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eventadmin/internal/session"
)

// SuperadminCmd creates the superadmin command tree. Request paths are
// resolved below /superadmin, and an expired session points back to
// "eventadmin superadmin login".
func SuperadminCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "superadmin",
		Short: "Administer the platform (admin role only)",
		Long: `Commands for the superadmin area of the platform.

Sign in with "eventadmin superadmin login"; accounts without the admin
role are refused. Request paths are relative to /superadmin.`,
		Example: `  eventadmin superadmin login -u root@example.com --password-stdin
  eventadmin superadmin get stats
  eventadmin superadmin put events/4/notes --data '{"admin_notes":"verified"}'`,
	}

	cmd.AddCommand(loginCmd(env, true))
	cmd.AddCommand(LogoutCmd(env))
	cmd.AddCommand(getCmd(env, session.SuperadminPrefix))
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		cmd.AddCommand(sendCmd(env, method, session.SuperadminPrefix))
	}

	return cmd
}
