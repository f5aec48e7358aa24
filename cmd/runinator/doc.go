// Command runinator is the single binary hosting all four Runinator
// components as subcommands: web (metadata API), broker, scheduler, and
// worker. Each subcommand owns its own flags, starts its piece, and
// blocks until SIGINT/SIGTERM before shutting down cleanly.
package main
