// Package discovery supplies the raw candidate hostnames for a backend
// group. The mesh source queries the local mesh daemon's HTTP API and
// filters peers by name prefix; the static source serves fixed target lists
// for the single and multi modes.
package discovery
