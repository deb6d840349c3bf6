// Package cli provides the interactive QuickSend command-line client.
//
// It wires configuration, the local SQLite store, the API client and the
// upload driver behind a small REPL:
//
//	upload <path>     start an upload in the background
//	cancel <id>       cancel one running upload
//	cancelall         cancel every running upload
//	active            list running uploads with progress
//	tier [name]       show plans or switch the current one
//	usage             show this month's uploads against the plan
//	help, exit
//
// A background watcher pings the server and flips the prompt between online
// and offline. The REPL is started via App.Run(ctx), which blocks until the
// user exits.
package cli
