// Package policy maps the fleet average onto the actuator state.
package policy

// Decide returns true when an average is present and strictly above the
// threshold. No data means off. It keeps no state between calls.
func Decide(average float64, ok bool, threshold float64) bool {
	if !ok {
		return false
	}
	return average > threshold
}
