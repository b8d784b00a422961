// Package materialize wires the reference enumeration, whitelist filtering,
// submodule resolution, and tree export services into the materialize CLI
// command.
package materialize
