// Package arr provides typed HTTP clients for Radarr and Sonarr. Both share
// one base client (X-Api-Key auth, /api/v3, 10s timeout); updates re-fetch
// the raw remote document and patch only the quality profile and tag list so
// the PUT never drops fields the typed structs do not model.
package arr
