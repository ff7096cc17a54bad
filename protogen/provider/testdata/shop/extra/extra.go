// Package extra holds a type reachable only as an extra class.
package extra

// Audit records a change.
type Audit struct {
	Actor  string `json:"actor"`
	Change string `json:"change"`
}
