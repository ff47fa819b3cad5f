// Package preview runs a saved or in-progress form the way an end user
// would see it. A Session owns the runtime state of one form: current
// values, compiled validators, and recomputed derived fields. The
// Renderer turns a Session into a standalone HTML document.
package preview
