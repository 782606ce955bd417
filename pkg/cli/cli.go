package cli

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	if err := newApp(os.Stdout).Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "kairos",
		Usage:  "Divination journal with contextual memory",
		Writer: w,
		Commands: []*cli.Command{
			askCommand(),
			journalCommand(),
			seedCommand(),
			focusCommand(),
			mcpCommand(),
		},
	}
}
