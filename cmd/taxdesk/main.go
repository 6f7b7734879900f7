package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"taxclient/internal/apperr"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config string `help:"Path to a YAML config file." type:"path" short:"c" env:"TAXDESK_CONFIG"`
}

// CLI is the top-level command structure for taxdesk.
type CLI struct {
	Globals

	Version    kong.VersionFlag `help:"Show version." short:"V"`
	Get        GetCmd           `cmd:"" help:"Fetch a resource through the cache and print it."`
	FileItr    FileItrCmd       `cmd:"" name:"file-itr" help:"File an ITR from a YAML form."`
	Dashboard  DashboardCmd     `cmd:"" help:"Open the interactive tax dashboard."`
	DevBackend DevBackendCmd    `cmd:"" name:"dev-backend" help:"Serve the in-memory tax service over HTTP and gRPC."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("taxdesk"),
		kong.Description("Tax filing desk client."),
		kong.Vars{"version": version + " " + commit},
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps failure classes to distinct exit statuses so scripts can
// tell a logged-out session from bad input.
func exitCode(err error) int {
	switch apperr.Classify(err).Kind {
	case apperr.KindValidation:
		return 2
	case apperr.KindAuth:
		return 3
	case apperr.KindNetwork:
		return 4
	default:
		return 1
	}
}
