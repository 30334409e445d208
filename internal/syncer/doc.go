// Package syncer orchestrates reconciliation runs: it connects to the
// configured Radarr, Sonarr, and Overseerr servers, resolves profile and
// tag names to remote ids, walks inventories through the engine, and
// records run bookkeeping. Instances sync in parallel up to a fixed limit;
// items within an instance stay strictly sequential.
package syncer
