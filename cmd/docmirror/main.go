// docmirror mirrors the document tree of Procore projects to disk or S3.
//
// Sub-commands:
//
//	docmirror [download] [flags]   Select a company and projects, then mirror them
//	docmirror login                Run the OAuth flow and save the token
//	docmirror logout               Remove the saved token
//	docmirror companies            List accessible companies
//	docmirror projects [flags]     List or export the projects of a company
//	docmirror version              Print the version
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
