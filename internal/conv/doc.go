// Package conv converts between int and the fixed-width types used for arena
// offsets, failing instead of wrapping when a value does not fit.
//
// Arena capacities arrive as int from configuration, while block addresses
// and sizes are uint64. Anything handed to the mapping layer goes back
// through Uint64ToInt.
package conv
