// Package engine wires the reactive stores, the transport and the sample
// bank into one handle that front ends drive.
//
// # Parts Lifecycle
//
// The bundle of parts is a store derived from the selected station and the
// configuration. Every change of either input disposes the previous parts
// and registers fresh ones, so at any time the transport holds exactly the
// parts of the enabled voices of the current station, or none.
//
// With bpm_auto the derived tempo is written back into the configuration.
// That write triggers one more recomputation, which finds the tempo equal
// and stops, so a single change costs at most two rebuilds.
//
// # Concurrency
//
// Store mutations are serialized by the engine mutex. Subscribers run
// synchronously on the mutating goroutine while the mutex is held, and must
// not call back into the engine. Transport callbacks run on the transport
// goroutine and take the mutex only to publish the highlighted month.
package engine
