// Command mgfwctl is the demo and ops CLI for the mgfw framework: it can
// stand up a composition root (Injector + Scheduler + QueueHive) behind a
// debug server, or act as a thin client against one already running.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
