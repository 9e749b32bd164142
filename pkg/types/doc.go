// Package types defines the Tree interface, the node and path-entry entity
// types, configuration, and the standard errors for the grove tree store.
package types
